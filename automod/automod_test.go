package automod

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"discord-automod/classifier"
	"discord-automod/database"
	"discord-automod/models"
	"discord-automod/rules"
	"discord-automod/violations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubClassifier always answers with the same verdict.
type stubClassifier struct {
	mu      sync.Mutex
	verdict classifier.Verdict
	calls   int
}

func (s *stubClassifier) Classify(context.Context, string) (classifier.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.verdict, nil
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingExecutor remembers every applied decision.
type recordingExecutor struct {
	mu      sync.Mutex
	applied []Decision
}

func (r *recordingExecutor) Apply(_ context.Context, _ *Snapshot, _ models.Message, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, d)
}

type fixture struct {
	store  *database.MemoryStore
	policy *Policy
	engine *Engine
	exec   *recordingExecutor
	clock  time.Time
}

func newFixture(t *testing.T, c classifier.Classifier) *fixture {
	t.Helper()

	settings := models.DefaultModerationConfig()
	settings.StaffRoleID = "staff"
	settings.NoAutomod = []string{"trusted"}
	settings.ExemptChannels = []string{"offtopic"}

	f := &fixture{
		store: database.NewMemoryStore(),
		exec:  &recordingExecutor{},
		clock: time.Unix(1_700_000_000, 0),
	}
	f.policy = NewPolicy(violations.NewTracker(f.store, zap.NewNop()), zap.NewNop())
	f.policy.now = func() time.Time { return f.clock }

	snap := &Snapshot{
		Settings: settings,
		Rules: rules.New("", rules.Bucket{Token: "1h", Terms: []string{"badword"}},
			rules.Bucket{Token: "2d", Terms: []string{"slur"}}),
		Classifier: c,
	}
	f.engine = NewEngine(f.policy, f.exec, snap, zap.NewNop())
	f.engine.SetSelfID("bot")
	return f
}

func (f *fixture) record(t *testing.T, user string) models.ViolationRecord {
	t.Helper()
	rec, _, err := f.store.Load(context.Background(), database.Key{GuildID: "g", UserID: user})
	require.NoError(t, err)
	return rec
}

func message(user, text string) models.Message {
	return models.Message{
		MessageID: "m-" + user,
		GuildID:   "g",
		ChannelID: "general",
		AuthorID:  user,
		Text:      text,
	}
}

func TestIsExempt(t *testing.T) {
	t.Parallel()

	settings := models.ModerationConfig{
		StaffRoleID:    "staff",
		NoAutomod:      []string{"trusted", "vip"},
		ExemptChannels: []string{"offtopic"},
		IgnoreBots:     true,
	}

	tests := []struct {
		name string
		msg  models.Message
		want bool
	}{
		{name: "regular user", msg: models.Message{AuthorID: "u", ChannelID: "general", AuthorRoles: []string{"member"}}},
		{name: "bot itself", msg: models.Message{AuthorID: "self", ChannelID: "general"}, want: true},
		{name: "other bot", msg: models.Message{AuthorID: "b", AuthorIsBot: true, ChannelID: "general"}, want: true},
		{name: "staff role", msg: models.Message{AuthorID: "u", ChannelID: "general", AuthorRoles: []string{"member", "staff"}}, want: true},
		{name: "no automod role", msg: models.Message{AuthorID: "u", ChannelID: "general", AuthorRoles: []string{"vip"}}, want: true},
		{name: "exempt channel", msg: models.Message{AuthorID: "u", ChannelID: "offtopic"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			first := IsExempt(settings, tt.msg, "self")
			assert.Equal(t, tt.want, first)
			for range 3 {
				assert.Equal(t, first, IsExempt(settings, tt.msg, "self"))
			}
		})
	}

	t.Run("bots scanned when not ignored", func(t *testing.T) {
		t.Parallel()

		s := settings
		s.IgnoreBots = false
		assert.False(t, IsExempt(s, models.Message{AuthorID: "b", AuthorIsBot: true}, "self"))
	})

	t.Run("empty staff role matches nobody", func(t *testing.T) {
		t.Parallel()

		assert.False(t, IsExempt(models.ModerationConfig{}, models.Message{AuthorID: "u", AuthorRoles: []string{""}}, ""))
	})
}

func TestBannedTermWarnThenMute(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{verdict: classifier.Verdict{OK: true, Flagged: true}}
	f := newFixture(t, stub)
	ctx := context.Background()

	d := f.engine.Handle(ctx, message("A", "this is a BadWord"))
	assert.Equal(t, Warn, d.Kind)
	assert.Equal(t, SourceTerm, d.Source)
	assert.Equal(t, "banned term: badword", d.Reason)
	assert.Equal(t, []string{"badword"}, f.record(t, "A").WarnedTerms)

	f.clock = f.clock.Add(90 * 24 * time.Hour)
	d = f.engine.Handle(ctx, message("A", "badword again"))
	assert.Equal(t, Mute, d.Kind)
	assert.Equal(t, time.Hour, d.Duration)
	assert.Equal(t, "1h", d.DurationToken)
	assert.Equal(t, "repeated banned term: badword", d.Reason)

	d = f.engine.Handle(ctx, message("B", "badword"))
	assert.Equal(t, Warn, d.Kind)

	assert.Zero(t, stub.Calls())
	assert.Len(t, f.exec.applied, 3)
}

func TestFirstBucketInFileOrderWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t, classifier.Disabled{})
	ctx := context.Background()

	f.engine.Handle(ctx, message("A", "slur and badword"))
	d := f.engine.Handle(ctx, message("A", "slur and badword"))
	assert.Equal(t, Mute, d.Kind)
	assert.Equal(t, "badword", d.Term)
	assert.Equal(t, time.Hour, d.Duration)
}

func TestInviteTakesPrecedence(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{verdict: classifier.Verdict{OK: true, Flagged: true}}
	f := newFixture(t, stub)

	d := f.engine.Handle(context.Background(), message("A", "join DISCORD.GG/abc, badword"))
	assert.Equal(t, Mute, d.Kind)
	assert.Equal(t, SourceInvite, d.Source)
	assert.Equal(t, 24*time.Hour, d.Duration)
	assert.Equal(t, "invite link", d.Reason)

	rec := f.record(t, "A")
	assert.Empty(t, rec.WarnedTerms)
	assert.Empty(t, rec.StrikeTimestamps)
	assert.Zero(t, stub.Calls())
}

func TestClassifierEscalation(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{verdict: classifier.Verdict{OK: true, Flagged: true, Categories: []string{"harassment"}}}
	f := newFixture(t, stub)
	ctx := context.Background()
	start := f.clock

	d := f.engine.Handle(ctx, message("A", "hello there"))
	assert.Equal(t, Warn, d.Kind)
	assert.Equal(t, "AI-flagged content", d.Reason)

	f.clock = start.Add(10 * time.Second)
	d = f.engine.Handle(ctx, message("A", "hello there"))
	assert.Equal(t, Warn, d.Kind)

	f.clock = start.Add(30 * time.Second)
	d = f.engine.Handle(ctx, message("A", "hello there"))
	assert.Equal(t, Mute, d.Kind)
	assert.Equal(t, 30*time.Minute, d.Duration)
	assert.Equal(t, "30m", d.DurationToken)
	assert.Equal(t, "AI-flagged content: harassment", d.Reason)
	assert.Equal(t, 3, d.TotalWarns)

	f.clock = start.Add(30*time.Second + 2000*time.Second)
	d = f.engine.Handle(ctx, message("A", "hello there"))
	assert.Equal(t, Warn, d.Kind)
	assert.Equal(t, 1, d.TotalWarns)
	assert.Len(t, f.record(t, "A").StrikeTimestamps, 1)
}

func TestClassifierNotFlagged(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{verdict: classifier.Verdict{OK: true, Flagged: false}}
	f := newFixture(t, stub)

	d := f.engine.Handle(context.Background(), message("A", "a perfectly nice message"))
	assert.Equal(t, Ignore, d.Kind)
	assert.Equal(t, 1, stub.Calls())
	assert.Empty(t, f.exec.applied)
	assert.Empty(t, f.record(t, "A").StrikeTimestamps)
}

func TestClassifierFailureFailsOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"results": [`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := classifier.NewOpenAI(models.AIConfig{
				APIKey:    "k",
				Endpoint:  srv.URL,
				TimeoutMS: 50,
			}, zap.NewNop())
			f := newFixture(t, c)

			d := f.engine.Handle(context.Background(), message("A", "something nasty"))
			assert.Equal(t, Ignore, d.Kind)
			assert.Empty(t, f.exec.applied)

			_, ok, err := f.store.Load(context.Background(), database.Key{GuildID: "g", UserID: "A"})
			require.NoError(t, err)
			assert.False(t, ok, "no strike may be recorded")
		})
	}
}

func TestStaffIsNeverSanctioned(t *testing.T) {
	t.Parallel()

	stub := &stubClassifier{verdict: classifier.Verdict{OK: true, Flagged: true}}
	f := newFixture(t, stub)

	msg := message("S", "badword discord.gg/x")
	msg.AuthorRoles = []string{"staff"}

	d := f.engine.Handle(context.Background(), msg)
	assert.Equal(t, Ignore, d.Kind)
	assert.Empty(t, f.exec.applied)
	assert.Zero(t, stub.Calls())

	keys, err := f.store.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMutedAuthorIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, classifier.Disabled{})
	until := f.clock.Add(time.Minute)

	msg := message("A", "badword")
	msg.MutedUntil = &until
	assert.Equal(t, Ignore, f.engine.Handle(context.Background(), msg).Kind)
	assert.Empty(t, f.record(t, "A").WarnedTerms)

	expired := f.clock.Add(-time.Minute)
	msg.MutedUntil = &expired
	assert.Equal(t, Warn, f.engine.Handle(context.Background(), msg).Kind)
}

func TestConcurrentFirstOccurrenceWarnsOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, classifier.Disabled{})

	var wg sync.WaitGroup
	results := make([]Decision, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.engine.Evaluate(context.Background(), message("A", "badword"))
		}()
	}
	wg.Wait()

	warns := 0
	for _, d := range results {
		if d.Kind == Warn {
			warns++
		} else {
			assert.Equal(t, Mute, d.Kind)
		}
	}
	assert.Equal(t, 1, warns)
}

func TestReloadSwapsSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t, classifier.Disabled{})
	first := f.engine.Snapshot()
	assert.Equal(t, uint64(1), first.Version)

	next := f.engine.Reload(&Snapshot{
		Settings: first.Settings,
		Rules:    rules.New("", rules.Bucket{Token: "5m", Terms: []string{"newterm"}}),
	})
	assert.Equal(t, uint64(2), next.Version)
	assert.Same(t, next, f.engine.Snapshot())
	assert.Equal(t, "disabled", next.Classifier.Name())

	// the old snapshot is untouched
	assert.Equal(t, uint64(1), first.Version)
	assert.Equal(t, "1h", first.Rules.Buckets[0].Token)

	assert.Equal(t, Ignore, f.engine.Evaluate(context.Background(), message("A", "badword")).Kind)
	assert.Equal(t, Warn, f.engine.Evaluate(context.Background(), message("A", "NEWTERM")).Kind)
}

func TestDecisionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ignore", ignore().String())
	assert.Equal(t, `warn("banned term: x")`, termWarn("x", 1).String())
	assert.Equal(t, `mute(1d, "invite link")`, inviteMute(24*time.Hour).String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}

func TestAIMuteReasonWithoutCategories(t *testing.T) {
	t.Parallel()

	d := aiMute(nil, 30, 3)
	assert.Equal(t, "AI-flagged content: violation", d.Reason)
	assert.Equal(t, "30m", d.DurationToken)

	d = aiMute([]string{"harassment", "violence"}, 30, 3)
	assert.Equal(t, "AI-flagged content: harassment, violence", d.Reason)
}
