// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Firestore is nil unless profiles.backend is "firestore".
//
// Services is allocated by ConnectDB and filled in by Startup, so the
// handlers built afterwards share the same long-lived objects.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Firestore     *firestore.Client

	Services *Services
}
