package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/validators"
	"github.com/dalemusser/vlsiclub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"accounts", "profiles", "identity_sessions", "auth_tokens", "oauth_states"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for i := 0; i < 2; i++ {
		if err := validators.EnsureAll(ctx, db); err != nil {
			t.Fatalf("EnsureAll run %d failed: %v", i+1, err)
		}
	}
}

func TestAccountsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	good := bson.M{
		"_id":            "acct-1",
		"email":          "a@iiitdwd.ac.in",
		"email_ci":       "a@iiitdwd.ac.in",
		"email_verified": false,
		"created_at":     time.Now().UTC(),
	}
	if _, err := db.Collection("accounts").InsertOne(ctx, good); err != nil {
		t.Fatalf("expected valid account to insert, got %v", err)
	}

	missingEmail := bson.M{
		"_id":            "acct-2",
		"email_verified": false,
		"created_at":     time.Now().UTC(),
	}
	if _, err := db.Collection("accounts").InsertOne(ctx, missingEmail); err == nil {
		t.Error("expected account without email to be rejected")
	}
}

func TestProfilesValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	good := bson.M{
		"_id":        "acct-1",
		"email":      "a@iiitdwd.ac.in",
		"role":       "client",
		"interests":  bson.A{"vlsi"},
		"created_at": time.Now().UTC(),
	}
	if _, err := db.Collection("profiles").InsertOne(ctx, good); err != nil {
		t.Fatalf("expected valid profile to insert, got %v", err)
	}

	noRole := bson.M{
		"_id":        "acct-2",
		"email":      "b@iiitdwd.ac.in",
		"created_at": time.Now().UTC(),
	}
	if _, err := db.Collection("profiles").InsertOne(ctx, noRole); err == nil {
		t.Error("expected profile without role to be rejected")
	}
}

func TestSessionsValidator_ProviderEnum(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	bad := bson.M{
		"_id":        "tok-1",
		"account_id": "acct-1",
		"provider":   "clever",
		"expires_at": time.Now().Add(time.Hour).UTC(),
	}
	if _, err := db.Collection("identity_sessions").InsertOne(ctx, bad); err == nil {
		t.Error("expected unknown provider to be rejected")
	}
}
