package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/redis/go-redis/v9"
)

var seedTime = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func roundTrip(t *testing.T, sn market.Snapshotter) {
	t.Helper()
	ctx := context.Background()

	got, err := sn.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("empty backend: got %v, %v; want nil, nil", got, err)
	}

	want := market.Seed(seedTime)
	if err := sn.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = sn.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("load returned nil after save")
	}
	if len(got.Users) != len(want.Users) || len(got.Products) != len(want.Products) ||
		len(got.Orders) != len(want.Orders) || len(got.Feedback) != len(want.Feedback) {
		t.Fatalf("collection sizes differ: got %d/%d/%d/%d", len(got.Users), len(got.Products), len(got.Orders), len(got.Feedback))
	}
	if got.Orders[0].TotalPrice != want.Orders[0].TotalPrice {
		t.Errorf("order total = %v, want %v", got.Orders[0].TotalPrice, want.Orders[0].TotalPrice)
	}
	if !got.Products[0].LastUpdated.Equal(want.Products[0].LastUpdated) {
		t.Errorf("lastUpdated = %v, want %v", got.Products[0].LastUpdated, want.Products[0].LastUpdated)
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"users": [`,
		"unknown field":  `{"users": [], "bogus": 1}`,
		"trailing data":  `{"users": []} {}`,
		"missing users":  `{"products": []}`,
		"bad role":       `{"users": [{"id": "u1", "role": "wizard", "status": "active"}]}`,
		"bad status":     `{"users": [{"id": "u1", "role": "buyer", "status": "gone"}]}`,
		"bad order enum": `{"users": [], "orders": [{"id": "o1", "status": "lost"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(raw)); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestDecodeAcceptsMinimalState(t *testing.T) {
	st, err := Decode([]byte(`{"currentUserId": null, "users": []}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.CurrentUserID != "" || len(st.Users) != 0 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	roundTrip(t, NewMemory())
}

func TestFileRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	f := NewFile(dir, "")
	roundTrip(t, f)

	if filepath.Base(f.Path()) != DefaultKey+".json" {
		t.Errorf("path = %s", f.Path())
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestFileCorrupt(t *testing.T) {
	f := NewFile(t.TempDir(), "k")
	if err := os.WriteFile(f.Path(), []byte("%%%"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	roundTrip(t, NewRedis(rdb, "test"))

	if !mr.Exists("snapshot:test") {
		t.Error("snapshot key not written")
	}
	if ttl := mr.TTL("snapshot:test"); ttl != 0 {
		t.Errorf("snapshot has ttl %v, want none", ttl)
	}
}

func TestRedisCorrupt(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	_ = mr.Set("snapshot:"+DefaultKey, "[]")
	if _, err := NewRedis(rdb, "").Load(context.Background()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

func TestPostgresLoad(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	b, err := Encode(market.Seed(seedTime))
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery("SELECT data FROM farmlink_snapshots").
		WithArgs(DefaultKey).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(b))

	st, err := NewPostgres(mock, "").Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st == nil || len(st.Users) != 5 {
		t.Fatalf("unexpected state %+v", st)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresLoadNoRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT data FROM farmlink_snapshots").
		WithArgs("k").
		WillReturnError(pgx.ErrNoRows)

	st, err := NewPostgres(mock, "k").Load(context.Background())
	if err != nil || st != nil {
		t.Fatalf("got %v, %v; want nil, nil", st, err)
	}
}

func TestPostgresSaveUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec("INSERT INTO farmlink_snapshots").
		WithArgs("k", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := NewPostgres(mock, "k").Save(context.Background(), market.Seed(seedTime)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresSaveError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO farmlink_snapshots").
		WithArgs("k", pgxmock.AnyArg()).
		WillReturnError(boom)

	if err := NewPostgres(mock, "k").Save(context.Background(), market.Seed(seedTime)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestStoreReseedsOverCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.Raw([]byte(`{"users": "nope"}`))

	s := market.Open(ctx, market.WithSnapshotter(mem), market.WithClock(func() time.Time { return seedTime }))
	if n := len(s.Snapshot().Users); n != 5 {
		t.Fatalf("users = %d, want seeded 5", n)
	}

	st, err := mem.Load(ctx)
	if err != nil || st == nil {
		t.Fatalf("seed was not written back: %v, %v", st, err)
	}
}

func TestStoreStateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	f := NewFile(t.TempDir(), "")
	clock := market.WithClock(func() time.Time { return seedTime })

	s := market.Open(ctx, market.WithSnapshotter(f), clock)
	if _, err := s.PlaceOrder(ctx, "buyer-2", market.OrderInput{ProductID: "product-2", Quantity: 10}); err != nil {
		t.Fatalf("place order: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := market.Open(ctx, market.WithSnapshotter(f), clock)
	p, ok := reopened.Product("product-2")
	if !ok {
		t.Fatal("product-2 missing after reopen")
	}
	if p.Stock != 110 {
		t.Errorf("stock = %d, want 110", p.Stock)
	}
	if n := len(reopened.Snapshot().Orders); n != 3 {
		t.Errorf("orders = %d, want 3", n)
	}
}

func TestRegisteredUsersSurviveRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := market.Open(ctx, market.WithSnapshotter(mem), market.WithClock(func() time.Time { return seedTime }))

	in := []market.RegisterInput{
		{Role: market.RoleFarmer, Name: "F", Email: "f@farm.io", Password: "pw", Expertise: []string{}},
		{Role: market.RoleFarmer, Name: "G", Email: "g@farm.io", Password: "pw", Expertise: []string{"Millets"}},
		{Role: market.RoleBuyer, Name: "B", Email: "b@shop.io", Password: "pw"},
	}
	var want []market.User
	for _, ri := range in {
		u, err := s.RegisterUser(ctx, ri)
		if err != nil {
			t.Fatal(err)
		}
		want = append(want, u)
	}

	st, err := mem.Load(ctx)
	if err != nil || st == nil {
		t.Fatalf("load: %v, %v", st, err)
	}
	got := st.Users[len(st.Users)-len(want):]
	for i := range want {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Errorf("user %d changed across save/load:\n got %#v\nwant %#v", i, got[i], want[i])
		}
	}
}
