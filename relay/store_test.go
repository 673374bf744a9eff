package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/repli/dbopen"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewStore(db)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, secret, err := s.RegisterClient(ctx, "lecteur", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(id, "cli_") {
		t.Errorf("client id: %q", id)
	}
	if secret == "" {
		t.Fatal("no secret generated")
	}

	c, err := s.Authenticate(ctx, id, secret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if c.ID != id || c.Name != "lecteur" {
		t.Errorf("client: %+v", c)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	// WHY: Unknown client and wrong secret must be indistinguishable to
	// the caller.
	s := openTestStore(t)
	ctx := context.Background()

	id, _, err := s.RegisterClient(ctx, "lecteur", "bon-secret")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Authenticate(ctx, id, "mauvais"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong secret: got %v", err)
	}
	if _, err := s.Authenticate(ctx, "cli_inconnu", "bon-secret"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("unknown client: got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _, err := s.RegisterClient(ctx, "lecteur", "x")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok, err := s.LoadSnapshot(ctx, id, "example.org"); err != nil || ok {
		t.Fatalf("empty load: ok=%v err=%v", ok, err)
	}

	payload := []byte(`{"values":{"d1":100},"last_modified":{"d1":42}}`)
	if err := s.SaveSnapshot(ctx, id, "example.org", payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.LoadSnapshot(ctx, id, "example.org")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload: %s", got)
	}

	// Replacement.
	payload2 := []byte(`{"values":{"d1":200},"last_modified":{"d1":99}}`)
	if err := s.SaveSnapshot(ctx, id, "example.org", payload2); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.LoadSnapshot(ctx, id, "example.org")
	if string(got) != string(payload2) {
		t.Errorf("payload after replace: %s", got)
	}
}

func TestSnapshotsIsolatedPerClientAndSite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, _, _ := s.RegisterClient(ctx, "un", "x")
	id2, _, _ := s.RegisterClient(ctx, "deux", "x")

	s.SaveSnapshot(ctx, id1, "a.org", []byte(`{"values":{},"last_modified":{}}`))

	if _, ok, _ := s.LoadSnapshot(ctx, id2, "a.org"); ok {
		t.Error("snapshot leaked across clients")
	}
	if _, ok, _ := s.LoadSnapshot(ctx, id1, "b.org"); ok {
		t.Error("snapshot leaked across sites")
	}
}

func TestDeleteClientCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, _, _ := s.RegisterClient(ctx, "lecteur", "x")
	s.SaveSnapshot(ctx, id, "a.org", []byte(`{"values":{},"last_modified":{}}`))

	if err := s.DeleteClient(ctx, id); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := s.DB.QueryRow(`SELECT COUNT(*) FROM fold_snapshots`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("snapshots left after client delete: %d", n)
	}

	clients, err := s.Clients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(clients) != 0 {
		t.Errorf("clients left: %d", len(clients))
	}
}
