package docstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/delimatsuo/headhunter-sub005/internal/config"
)

func stubFirestore(t *testing.T, newErr map[int]error, verifyErr error) *[]string {
	t.Helper()
	var projects []string
	call := 0
	origNew, origVerify := newFirestoreClient, verifyFirestore
	newFirestoreClient = func(ctx context.Context, project, database string, opts ...option.ClientOption) (*firestore.Client, error) {
		defer func() { call++ }()
		projects = append(projects, project)
		if err := newErr[call]; err != nil {
			return nil, err
		}
		// an offline client: the emulator options never dial until used
		return firestore.NewClient(ctx, "demo", option.WithEndpoint("127.0.0.1:1"), option.WithoutAuthentication())
	}
	verifyFirestore = func(context.Context, *firestore.Client) error { return verifyErr }
	t.Cleanup(func() { newFirestoreClient, verifyFirestore = origNew, origVerify })
	return &projects
}

func TestFirestoreStrategyOrder(t *testing.T) {
	o := FirestoreOptions{EmulatorHost: "localhost:8080", CredentialsFile: "/tmp/sa.json"}
	var names []string
	for _, a := range o.strategies() {
		names = append(names, a.name)
	}
	assert.Equal(t, []string{StrategyEmulator, StrategyCredentialsFile, StrategyADC}, names)

	names = nil
	for _, a := range (FirestoreOptions{}).strategies() {
		names = append(names, a.name)
	}
	assert.Equal(t, []string{StrategyADC}, names)
}

func TestOpenFirestoreFallsThrough(t *testing.T) {
	projects := stubFirestore(t, map[int]error{0: errors.New("file unreadable")}, nil)
	s, err := OpenFirestore(context.Background(), FirestoreOptions{CredentialsFile: "/nope.json"})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, StrategyADC, s.Strategy())
	assert.Equal(t, "firestore/adc", s.Backend())
	assert.Equal(t, []string{firestore.DetectProjectID, firestore.DetectProjectID}, *projects)
}

func TestOpenFirestoreEmulatorProject(t *testing.T) {
	projects := stubFirestore(t, nil, nil)
	s, err := OpenFirestore(context.Background(), FirestoreOptions{EmulatorHost: "localhost:8080"})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, StrategyEmulator, s.Strategy())
	assert.Equal(t, []string{emulatorProject}, *projects)
}

func TestOpenFirestoreAllFail(t *testing.T) {
	stubFirestore(t, nil, errors.New("permission denied"))
	_, err := OpenFirestore(context.Background(), FirestoreOptions{CredentialsFile: "/sa.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials-file: permission denied")
	assert.Contains(t, err.Error(), "adc: permission denied")
}

func TestFirestoreClosed(t *testing.T) {
	stubFirestore(t, nil, nil)
	s, err := OpenFirestore(context.Background(), FirestoreOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Get(context.Background(), "c", "id")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenLocalBackend(t *testing.T) {
	s := newLocal(t)
	cfg := config.Default()
	cfg.Docstore.Backend = "local"
	store, err := Open(context.Background(), cfg, s.db, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", store.Backend())

	_, err = Open(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg.Docstore.Backend = "mongo"
	_, err = Open(context.Background(), cfg, s.db, nil)
	assert.Error(t, err)
}

// TestFirestoreEmulator runs against a real emulator when one is configured.
func TestFirestoreEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	s, err := OpenFirestore(ctx, FirestoreOptions{EmulatorHost: host})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.client.Collection("candidates").Doc("emu-1").Set(ctx, map[string]any{"name": "Ada"})
	require.NoError(t, err)

	docs, err := s.GetAll(ctx, "candidates", []string{"emu-1", "emu-missing"})
	require.NoError(t, err)
	assert.True(t, docs[0].Exists)
	assert.Equal(t, []string{"name"}, docs[0].Keys())
	assert.False(t, docs[1].Exists)
}
