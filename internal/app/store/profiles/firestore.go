package profiles

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps profiles in a Firestore collection keyed by account id.
type FirestoreStore struct {
	col *firestore.CollectionRef
}

// NewFirestore creates a Firestore-backed profile store. collection
// defaults to "users".
func NewFirestore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "users"
	}
	return &FirestoreStore{col: client.Collection(collection)}
}

func (s *FirestoreStore) Get(ctx context.Context, accountID string) (*models.Profile, error) {
	snap, err := s.col.Doc(accountID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("while reading profile %q: %w", accountID, err)
	}
	p := &models.Profile{}
	if err := snap.DataTo(p); err != nil {
		return nil, fmt.Errorf("while unmarshaling profile %q: %w", accountID, err)
	}
	p.AccountID = accountID
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return p, nil
}

func (s *FirestoreStore) Create(ctx context.Context, p *models.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.Doc(p.AccountID).Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("while creating profile %q: %w", p.AccountID, err)
	}
	return nil
}

func (s *FirestoreStore) Merge(ctx context.Context, accountID string, fields map[string]any) error {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updatedAt"] = time.Now().UTC()
	if _, err := s.col.Doc(accountID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("while merging profile %q: %w", accountID, err)
	}
	return nil
}
