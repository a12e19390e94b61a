package dialog

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"dialog-agent/corpus"
	apperrors "dialog-agent/errors"
	"dialog-agent/metric"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testCatalog(t *testing.T, withDefault bool) *corpus.Catalog {
	t.Helper()
	c := corpus.NewCatalog("default_responses")
	tables := []*corpus.Table{
		{
			ID: "smith",
			Rows: []corpus.Row{
				{
					Name:             "buy_sword",
					Ask:              "Where can I buy a sword",
					Keywords:         []string{"buy", "sword"},
					MinKeywordsMatch: 2,
					Answers:          []corpus.Answer{{Text: "Try the blacksmith."}},
				},
				{
					Name:             "work",
					Ask:              "Do you have work for me",
					Keywords:         []string{"work"},
					MinKeywordsMatch: 1,
					Answers:          []corpus.Answer{{Text: "Fetch me some ore.", Task: "quest_ore"}},
					TableActions:     []corpus.TableAction{{Action: corpus.ActionAdd, Table: "ore_quest"}},
				},
			},
		},
		{
			ID: "ore_quest",
			Rows: []corpus.Row{{
				Name:             "ore_done",
				Ask:              "I brought the ore",
				Keywords:         []string{"ore", "brought"},
				MinKeywordsMatch: 1,
				Answers:          []corpus.Answer{{Text: "Many thanks."}, {Text: "Good work."}},
				Tasks:            []string{"pay_reward"},
				TableActions:     []corpus.TableAction{{Action: corpus.ActionRemove, Table: "ore_quest"}},
			}},
		},
	}
	if withDefault {
		tables = append(tables, &corpus.Table{
			ID:      "default_responses",
			Default: true,
			Rows: []corpus.Row{{
				Name:    "pardon",
				Answers: []corpus.Answer{{Text: "Pardon me?"}, {Text: "I beg your pardon?"}},
			}},
		})
	}
	for _, table := range tables {
		if err := c.Add(table); err != nil {
			t.Fatal(err)
		}
	}
	c.SetInitialTables("blacksmith", []corpus.TableID{"smith"})
	return c
}

func newTestEngine(t *testing.T, catalog *corpus.Catalog, snapshots metric.SnapshotStore) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.MetricInterval = 0
	opts.Metric.Epsilon = 0
	opts.Snapshots = snapshots
	e, err := NewEngine(catalog, opts, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func blacksmith() Relationship {
	return Relationship{PlayerID: uuid.MustParse("6f1c5a0e-2d7b-4b8e-9f55-0a3c1e2d4b6f"), PartnerID: "blacksmith"}
}

func TestGenerateReplySwordScenario(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	rel := blacksmith()

	res, err := e.GenerateReply(context.Background(), rel, "where can i by a sowrd")
	if err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if !res.Found || res.Table != "smith" || res.Row != "buy_sword" || res.AnswerIndex != 0 {
		t.Fatalf("GenerateReply = %+v, want smith/buy_sword#0", res)
	}
	if res.Text != "Try the blacksmith." {
		t.Errorf("Text = %q", res.Text)
	}
	if !reflect.DeepEqual(res.Keywords[:2], []string{"buy", "sword"}) {
		t.Errorf("Keywords = %v, want buy and sword first", res.Keywords)
	}

	store, _ := e.Metrics().Get(rel.Key())
	entry, ok := store.Entry("smith", "buy_sword", 0)
	if !ok || entry.Weariness != 0.5 {
		t.Errorf("weariness after reply = %+v, want 0.5", entry)
	}
}

func TestGenerateKeywords(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)

	kws, err := e.GenerateKeywords(context.Background(), blacksmith(), "where can i by a sowrd")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(kws[:2], []string{"buy", "sword"}) {
		t.Errorf("GenerateKeywords = %v", kws)
	}

	if _, err := e.GenerateKeywords(context.Background(), blacksmith(), "  "); !apperrors.IsInvalidInput(err) {
		t.Errorf("empty sentence err = %v, want invalid input", err)
	}
	if _, err := e.GenerateKeywords(context.Background(), Relationship{PartnerID: "blacksmith"}, "buy"); !apperrors.IsInvalidInput(err) {
		t.Errorf("missing player err = %v, want invalid input", err)
	}
}

func TestReplyPerSentence(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)

	results, err := e.Reply(context.Background(), blacksmith(), "Where can I buy a sword? Xyzzy.")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[0].Found || results[0].Text != "Try the blacksmith." {
		t.Errorf("first sentence = %+v", results[0])
	}
	if results[1].Found || results[1].Table != "default_responses" {
		t.Errorf("second sentence = %+v, want a default response", results[1])
	}

	empty, err := e.Reply(context.Background(), blacksmith(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 1 || empty[0].Found || empty[0].Table != "default_responses" {
		t.Errorf("empty input = %+v", empty)
	}
}

func TestDefaultResponsesRotate(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)

	first, _ := e.GenerateReply(context.Background(), blacksmith(), "xyzzy")
	second, _ := e.GenerateReply(context.Background(), blacksmith(), "xyzzy")
	if first.Text == second.Text {
		t.Errorf("default response repeated: %q", first.Text)
	}
}

func TestDefaultReplyTextWithoutDefaultTable(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, false), nil)

	res, err := e.GenerateReply(context.Background(), blacksmith(), "xyzzy")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found || res.Table != "" || res.Text != DefaultReplyText {
		t.Errorf("GenerateReply = %+v, want default reply text", res)
	}
}

func TestTableActions(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	rel := blacksmith()
	ctx := context.Background()

	if got := e.Tables(rel); len(got) != 0 {
		t.Fatalf("tables before first contact = %v", got)
	}

	res, _ := e.GenerateReply(ctx, rel, "Do you have work?")
	if !res.Found || res.Task != "quest_ore" {
		t.Fatalf("work reply = %+v", res)
	}
	if !e.HasTable(rel, "ore_quest") {
		t.Fatal("add action did not register ore_quest")
	}
	store, _ := e.Metrics().Get(rel.Key())
	if !store.HasTable("ore_quest") {
		t.Error("add action did not register weariness for ore_quest")
	}

	res, _ = e.GenerateReply(ctx, rel, "I brought the ore")
	if !res.Found || res.Table != "ore_quest" {
		t.Fatalf("ore reply = %+v", res)
	}
	if !reflect.DeepEqual(res.Tasks, []string{"pay_reward"}) {
		t.Errorf("Tasks = %v, want the row tasks", res.Tasks)
	}
	if e.HasTable(rel, "ore_quest") || store.HasTable("ore_quest") {
		t.Error("remove action left ore_quest registered")
	}
	if !reflect.DeepEqual(e.Tables(rel), []corpus.TableID{"smith"}) {
		t.Errorf("Tables() = %v", e.Tables(rel))
	}
}

func TestRegisterUnregisterTable(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	rel := blacksmith()
	ctx := context.Background()

	if err := e.RegisterTable(ctx, rel, "missing"); !apperrors.IsNotFound(err) {
		t.Errorf("RegisterTable(missing) err = %v", err)
	}
	if err := e.RegisterTable(ctx, rel, "ore_quest"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(e.Tables(rel), []corpus.TableID{"smith", "ore_quest"}) {
		t.Errorf("Tables() = %v", e.Tables(rel))
	}
	if err := e.UnregisterTable(ctx, rel, "ore_quest"); err != nil {
		t.Fatal(err)
	}
	if err := e.UnregisterTable(ctx, rel, "ore_quest"); !apperrors.IsNotFound(err) {
		t.Errorf("second UnregisterTable err = %v", err)
	}

	e.Forget(rel.Key())
	if _, ok := e.Metrics().Get(rel.Key()); ok {
		t.Error("Forget left the weariness store")
	}
}

func TestRelationshipRebuiltAfterPartialTeardown(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	rel := blacksmith()
	ctx := context.Background()

	if err := e.UnregisterTable(ctx, rel, "smith"); err != nil {
		t.Fatal(err)
	}
	// The store disappears while the availability list is still around.
	e.Metrics().Remove(rel.Key())

	res, err := e.GenerateReply(ctx, rel, "Where can I buy a sword?")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Table != "smith" {
		t.Errorf("reply after rebuild = %+v, want a smith row", res)
	}
	if !reflect.DeepEqual(e.Tables(rel), []corpus.TableID{"smith"}) {
		t.Errorf("Tables() = %v, want the initial tables", e.Tables(rel))
	}
}

func TestForgetIdle(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	rel := blacksmith()
	ctx := context.Background()

	if e.ForgetIdle(rel.Key(), time.Now()) {
		t.Error("ForgetIdle on an unknown relationship should report false")
	}

	if _, err := e.RegisterInitialTables(ctx, rel); err != nil {
		t.Fatal(err)
	}
	cutoff := time.Now()
	// Completing input counts as activity.
	e.FindAskOptions(ctx, rel, "wh")
	if e.ForgetIdle(rel.Key(), cutoff) {
		t.Error("relationship used after the cutoff was forgotten")
	}

	if !e.ForgetIdle(rel.Key(), time.Now().Add(time.Minute)) {
		t.Fatal("idle relationship was kept")
	}
	if _, ok := e.Metrics().Get(rel.Key()); ok || len(e.Tables(rel)) != 0 {
		t.Error("ForgetIdle left state behind")
	}
}

func TestForgetConcurrentWithReplies(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	rel := blacksmith()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = e.GenerateReply(ctx, rel, "Where can I buy a sword?")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.Forget(rel.Key())
			}
		}()
	}
	wg.Wait()

	if _, ok := e.Metrics().Get(rel.Key()); ok && !e.HasTable(rel, "smith") {
		t.Fatal("live store without its initial tables")
	}
	res, err := e.GenerateReply(ctx, rel, "Where can I buy a sword?")
	if err != nil || !res.Found || res.Table != "smith" {
		t.Errorf("reply after churn = %+v, %v", res, err)
	}
}

func TestFindAskOptions(t *testing.T) {
	e := newTestEngine(t, testCatalog(t, true), nil)
	ctx := context.Background()
	rel := blacksmith()

	tests := []struct {
		name    string
		partial string
		want    []string
	}{
		{name: "first_word", partial: "wh", want: []string{"Where can I buy a sword"}},
		{name: "with_prefix", partial: "Hello there. do y", want: []string{"Hello there. Do you have work for me"}},
		{name: "doubled_separator", partial: "Where!?", want: []string{"Where can I buy a sword"}},
		{name: "doubled_separator_with_prefix", partial: "Hi.Where!?", want: []string{"Hi. Where can I buy a sword"}},
		{name: "multibyte_prefix", partial: "Grüße!? wh", want: []string{"Grüße! Where can I buy a sword"}},
		{name: "unavailable_table", partial: "i brou", want: nil},
		{name: "empty", partial: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.FindAskOptions(ctx, rel, tt.partial); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindAskOptions(%q) = %v, want %v", tt.partial, got, tt.want)
			}
		})
	}
}

type memorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]metric.Snapshot
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, snap metric.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Key] = snap
	return nil
}

func (m *memorySnapshots) LoadSnapshot(_ context.Context, key string) (metric.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[key]
	if !ok {
		return metric.Snapshot{}, apperrors.ErrNotFound
	}
	return snap, nil
}

func (m *memorySnapshots) DeleteSnapshot(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, key)
	return nil
}

func TestSnapshotRestoredOnFirstContact(t *testing.T) {
	rel := blacksmith()
	snaps := &memorySnapshots{snaps: map[string]metric.Snapshot{
		rel.Key(): {Key: rel.Key(), Entries: []metric.SnapshotEntry{
			{Table: "smith", Row: "buy_sword", AnswerIndex: 0, Weariness: 0.2, Jitter: 1},
		}},
	}}
	e := newTestEngine(t, testCatalog(t, true), snaps)

	store, err := e.RegisterInitialTables(context.Background(), rel)
	if err != nil {
		t.Fatal(err)
	}
	if entry, _ := store.Entry("smith", "buy_sword", 0); entry.Weariness != 0.2 {
		t.Errorf("restored weariness = %f, want 0.2", entry.Weariness)
	}
}

func TestRelationshipKey(t *testing.T) {
	rel := blacksmith()
	parsed, err := ParseRelationshipKey(rel.Key())
	if err != nil || parsed != rel {
		t.Errorf("ParseRelationshipKey(%q) = %+v, %v", rel.Key(), parsed, err)
	}

	for _, bad := range []string{"", "no-colon", "not-a-uuid:smith", rel.PlayerID.String() + ":Bad Partner"} {
		if _, err := ParseRelationshipKey(bad); err == nil {
			t.Errorf("ParseRelationshipKey(%q) should fail", bad)
		}
	}
}
