// Package docstore reads documents by id from Cloud Firestore or from a local
// Pebble-backed store.
//
// The Firestore backend connects with the first credential strategy that
// works: emulator, service account file, then Application Default
// Credentials. Missing documents are not errors; they come back with
// Exists=false.
//
//	store, err := docstore.Open(ctx, cfg, rt.DB(), logger)
//	if err != nil { /* no strategy worked */ }
//	defer store.Close()
//	rep := docstore.Smoke(ctx, store, "candidates", "abc123")
//	fmt.Println(rep.Backend, rep.Exists, rep.Keys)
package docstore
