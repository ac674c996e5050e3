package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oraculo-ai/oraculo/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("oraculo"),
		tcPostgres.WithUsername("oraculo"),
		tcPostgres.WithPassword("oraculo"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://oraculo:oraculo@%s:%s/oraculo?sslmode=disable", host, port.Port())
	if err := store.Migrate("file://../../migrations", dsn, "up", 0); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_UsersAndHistory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "ana@example.com", "$2a$10$hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == "" || user.CreatedAt.IsZero() {
		t.Fatalf("user fields not populated: %+v", user)
	}

	if _, err := st.CreateUser(ctx, "ana@example.com", "other"); err == nil {
		t.Fatal("duplicate email must be rejected")
	}

	fetched, err := st.UserByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("user by email: %v", err)
	}
	if fetched.ID != user.ID {
		t.Fatalf("lookup returned a different user: %s vs %s", fetched.ID, user.ID)
	}
	if _, err := st.UserByEmail(ctx, "ninguem@example.com"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	exchanges := []store.Exchange{
		{UserID: user.ID, Question: "Qual a capital da França?", Answer: "Paris é a capital da França.", Label: "wikipedia", Quality: 0.9, LatencyMS: 850},
		{UserID: user.ID, Question: "Como funciona a fotossíntese?", Answer: "A fotossíntese converte luz em energia química.", Label: "wikipedia+duckduckgo", Quality: 0.8, LatencyMS: 1900},
	}
	var lastID string
	for _, e := range exchanges {
		id, err := st.SaveExchange(ctx, e)
		if err != nil {
			t.Fatalf("save exchange: %v", err)
		}
		lastID = id
	}

	history, err := st.History(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(history))
	}
	if history[0].Question != "Como funciona a fotossíntese?" {
		t.Fatalf("history not newest first: %+v", history[0])
	}

	found, err := st.SearchHistory(ctx, user.ID, "capital", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Label != "wikipedia" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	if err := st.SetFeedback(ctx, user.ID, lastID, true); err != nil {
		t.Fatalf("set feedback: %v", err)
	}
	rated, err := st.ExchangeByID(ctx, user.ID, lastID)
	if err != nil {
		t.Fatalf("exchange by id: %v", err)
	}
	if rated.Helpful == nil || !*rated.Helpful {
		t.Fatalf("feedback not visible on the exchange: %+v", rated)
	}
	if _, err := st.ExchangeByID(ctx, "00000000-0000-0000-0000-000000000000", lastID); err != store.ErrNotFound {
		t.Fatalf("other users must not see the exchange, got %v", err)
	}
	if err := st.SetFeedback(ctx, user.ID, "00000000-0000-0000-0000-000000000000", true); err != store.ErrNotFound {
		t.Fatalf("feedback on unknown exchange: expected ErrNotFound, got %v", err)
	}

	stats, err := st.Statistics(ctx, user.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalQuestions != 2 || stats.HelpfulCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.SourceCounts["wikipedia"] != 1 || stats.SourceCounts["wikipedia+duckduckgo"] != 1 {
		t.Fatalf("source counts wrong: %+v", stats.SourceCounts)
	}
}
