package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/delimatsuo/headhunter-sub005/pkg/log"
)

// Credential strategies tried by OpenFirestore, in order.
const (
	StrategyEmulator        = "emulator"
	StrategyCredentialsFile = "credentials-file"
	StrategyADC             = "adc"
)

// emulatorProject is used when talking to an emulator without a project.
const emulatorProject = "demo-hhdiag"

// FirestoreOptions configures OpenFirestore.
type FirestoreOptions struct {
	Project string
	// Database defaults to "(default)".
	Database        string
	CredentialsFile string
	EmulatorHost    string
	// SkipVerify skips the probe read that confirms credentials work.
	SkipVerify bool
	Logger     log.Logger
}

// FirestoreStore reads documents from Cloud Firestore.
type FirestoreStore struct {
	client   *firestore.Client
	strategy string

	mu     sync.Mutex
	closed bool
}

type attempt struct {
	name string
	opts []option.ClientOption
}

// strategies lists the applicable credential strategies in order.
func (o FirestoreOptions) strategies() []attempt {
	var out []attempt
	if o.EmulatorHost != "" {
		out = append(out, attempt{name: StrategyEmulator, opts: []option.ClientOption{
			option.WithEndpoint(o.EmulatorHost),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}})
	}
	if o.CredentialsFile != "" {
		out = append(out, attempt{name: StrategyCredentialsFile, opts: []option.ClientOption{
			option.WithCredentialsFile(o.CredentialsFile),
		}})
	}
	out = append(out, attempt{name: StrategyADC})
	return out
}

var newFirestoreClient = func(ctx context.Context, project, database string, opts ...option.ClientOption) (*firestore.Client, error) {
	return firestore.NewClientWithDatabase(ctx, project, database, opts...)
}

// verifyFirestore performs one read. NotFound proves the credentials work.
var verifyFirestore = func(ctx context.Context, c *firestore.Client) error {
	_, err := c.Collection("_hhdiag").Doc("ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

// OpenFirestore tries each credential strategy in order and keeps the first
// client that connects. Each failure is logged; if none succeed the joined
// errors are returned.
func OpenFirestore(ctx context.Context, o FirestoreOptions) (*FirestoreStore, error) {
	logger := o.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	logger = logger.WithComponent("docstore")
	database := o.Database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}

	var errs []error
	for _, a := range o.strategies() {
		project := o.Project
		if project == "" {
			project = firestore.DetectProjectID
			if a.name == StrategyEmulator {
				project = emulatorProject
			}
		}
		client, err := newFirestoreClient(ctx, project, database, a.opts...)
		if err == nil && !o.SkipVerify {
			if verr := verifyFirestore(ctx, client); verr != nil {
				_ = client.Close()
				client, err = nil, verr
			}
		}
		if err != nil {
			logger.Warn("firestore strategy failed", log.Str("strategy", a.name), log.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		logger.Info("firestore connected", log.Str("strategy", a.name), log.Str("database", database))
		return &FirestoreStore{client: client, strategy: a.name}, nil
	}
	return nil, fmt.Errorf("docstore: no firestore strategy succeeded: %w", errors.Join(errs...))
}

// Strategy returns the credential strategy that connected.
func (s *FirestoreStore) Strategy() string { return s.strategy }

// Backend implements Store.
func (s *FirestoreStore) Backend() string { return "firestore/" + s.strategy }

func (s *FirestoreStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Get implements Store.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := s.check(); err != nil {
		return Document{}, err
	}
	if err := ValidateName("collection", collection); err != nil {
		return Document{}, err
	}
	if err := ValidateName("document id", id); err != nil {
		return Document{}, err
	}
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{ID: id, Collection: collection}, nil
		}
		return Document{}, fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	return fromSnapshot(collection, id, snap), nil
}

// GetAll implements Store with a single batched read.
func (s *FirestoreStore) GetAll(ctx context.Context, collection string, ids []string) ([]Document, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ValidateName("collection", collection); err != nil {
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		if err := ValidateName("document id", id); err != nil {
			return nil, err
		}
		refs[i] = s.client.Collection(collection).Doc(id)
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("docstore: get all from %s: %w", collection, err)
	}
	out := make([]Document, len(ids))
	for i, snap := range snaps {
		out[i] = fromSnapshot(collection, ids[i], snap)
	}
	return out, nil
}

func fromSnapshot(collection, id string, snap *firestore.DocumentSnapshot) Document {
	d := Document{ID: id, Collection: collection}
	if snap == nil || !snap.Exists() {
		return d
	}
	d.Exists = true
	d.Data = snap.Data()
	d.UpdateTime = snap.UpdateTime
	return d
}

// Close implements Store.
func (s *FirestoreStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}
