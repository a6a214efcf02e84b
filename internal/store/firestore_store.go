package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Gateway on Cloud Firestore. Collection paths map
// directly onto Firestore paths, so "users/u1/addresses" is a real
// subcollection.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// ConnectFirestore opens a client for projectID. credentialsFile is optional;
// when empty the ambient credentials (or FIRESTORE_EMULATOR_HOST) are used.
func ConnectFirestore(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient failed (project=%s): %w", projectID, err)
	}
	return client, nil
}

func (s *FirestoreStore) GetDocument(ctx context.Context, collection, id string) (*Snapshot, error) {
	if err := checkKey(collection, id); err != nil {
		return nil, err
	}

	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, unavailable("get", err)
	}
	if snap == nil || !snap.Exists() {
		return nil, nil
	}

	doc, err := normalize(snap.Data())
	if err != nil {
		return nil, err
	}
	// docId is the source of truth, never a field inside the body
	return &Snapshot{ID: snap.Ref.ID, Data: doc}, nil
}

func (s *FirestoreStore) SetDocument(ctx context.Context, collection, id string, data Document, merge bool) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	normalized, err := normalize(data)
	if err != nil {
		return err
	}
	body := map[string]any(normalized)
	if body == nil {
		body = map[string]any{}
	}

	ref := s.client.Collection(collection).Doc(id)
	if merge {
		_, err = ref.Set(ctx, body, mergeOption(body))
	} else {
		_, err = ref.Set(ctx, body)
	}
	if err != nil {
		return unavailable("set", err)
	}
	return nil
}

// mergeOption limits a merge to the top-level fields of body, so nested maps
// and arrays are replaced as a whole.
func mergeOption(body map[string]any) firestore.SetOption {
	if len(body) == 0 {
		return firestore.MergeAll
	}
	paths := make([]firestore.FieldPath, 0, len(body))
	for k := range body {
		paths = append(paths, firestore.FieldPath{k})
	}
	return firestore.Merge(paths...)
}

func (s *FirestoreStore) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

func (s *FirestoreStore) QueryEquals(ctx context.Context, collection, field string, value any) ([]Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	want, err := queryValue(value)
	if err != nil {
		return nil, err
	}

	iter := s.client.Collection(collection).Where(field, "==", want).Documents(ctx)
	defer iter.Stop()

	result := make([]Snapshot, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, unavailable("query", err)
		}
		doc, err := normalize(snap.Data())
		if err != nil {
			return nil, err
		}
		result = append(result, Snapshot{ID: snap.Ref.ID, Data: doc})
	}
	sortSnapshots(result)
	return result, nil
}
