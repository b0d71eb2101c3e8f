package botcli_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/botpanel/internal/botcli"
	"github.com/steveyegge/botpanel/internal/testutil/fakebot"
)

func TestMain(m *testing.M) {
	fakebot.RunIfRequested()
	os.Exit(m.Run())
}

func storyBotDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "testutil", "testdata", "bots", "story_bot"))
	require.NoError(t, err)
	return dir
}

func startSession(t *testing.T) *botcli.Session {
	t.Helper()
	s := botcli.New(fakebot.SessionConfig(storyBotDir(t)))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Cleanup() })
	return s
}

type statusView struct {
	Behaviors struct {
		Current string `json:"current"`
	} `json:"behaviors"`
	CurrentAction string `json:"current_action"`
	LastOperation string `json:"last_operation"`
	Scope         struct {
		Type   string `json:"type"`
		Filter string `json:"filter"`
	} `json:"scope"`
}

func status(t *testing.T, s *botcli.Session) statusView {
	t.Helper()
	resp, err := s.Execute(context.Background(), botcli.NewCommand("status"))
	require.NoError(t, err)
	var st statusView
	require.NoError(t, resp.Decode(&st))
	return st
}

func TestSession_NavigateBehavior(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	assert.Equal(t, "discovery", status(t, s).Behaviors.Current)

	_, err := s.Execute(ctx, botcli.ParsePath("shape"))
	require.NoError(t, err)

	st := status(t, s)
	assert.Equal(t, "shape", st.Behaviors.Current)
	assert.Equal(t, "clarify", st.CurrentAction)
}

func TestSession_NavigateAction(t *testing.T) {
	s := startSession(t)

	_, err := s.Execute(context.Background(), botcli.ParsePath("shape.strategy"))
	require.NoError(t, err)

	st := status(t, s)
	assert.Equal(t, "shape", st.Behaviors.Current)
	assert.Equal(t, "strategy", st.CurrentAction)
}

func TestSession_NavigateOperation(t *testing.T) {
	s := startSession(t)

	_, err := s.Execute(context.Background(), botcli.ParsePath("tests.build.submit"))
	require.NoError(t, err)

	st := status(t, s)
	assert.Equal(t, "tests", st.Behaviors.Current)
	assert.Equal(t, "build", st.CurrentAction)
	assert.Equal(t, "tests.build.submit", st.LastOperation)
}

func TestSession_QuotedArguments(t *testing.T) {
	s := startSession(t)

	_, err := s.Execute(context.Background(), botcli.NewCommand("scope").With(botcli.Positional("Bob's \"big\" story")))
	require.NoError(t, err)

	st := status(t, s)
	assert.Equal(t, "story", st.Scope.Type)
	assert.Equal(t, `Bob's "big" story`, st.Scope.Filter)
}

func TestSession_SequentialResponsesStayOrdered(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		want := fmt.Sprintf("msg-%d", i)
		resp, err := s.Execute(ctx, botcli.NewCommand("echo").With(botcli.Positional(want)))
		require.NoError(t, err)

		var got struct {
			Echo string `json:"echo"`
		}
		require.NoError(t, resp.Decode(&got))
		assert.Equal(t, want, got.Echo)
	}
}

func TestSession_ConcurrentCallersGetTheirOwnResponse(t *testing.T) {
	s := startSession(t)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		want := fmt.Sprintf("caller-%d", i)
		g.Go(func() error {
			resp, err := s.Execute(ctx, botcli.NewCommand("echo").With(botcli.Positional(want)))
			if err != nil {
				return err
			}
			var got struct {
				Echo string `json:"echo"`
			}
			if err := resp.Decode(&got); err != nil {
				return err
			}
			if got.Echo != want {
				return fmt.Errorf("got %q, want %q", got.Echo, want)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestSession_CommandError(t *testing.T) {
	s := startSession(t)

	resp, err := s.Execute(context.Background(), botcli.ParsePath("shape.bogus"))
	require.Error(t, err)

	var cmdErr *botcli.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Message, "unknown action")
	require.NotNil(t, resp)
	assert.Equal(t, "shape.bogus", resp.Command)

	// The session is still usable.
	assert.Equal(t, "discovery", status(t, s).Behaviors.Current)
}

func TestSession_MalformedResponse(t *testing.T) {
	s := startSession(t)

	_, err := s.ExecuteLine(context.Background(), "garbage")
	var malformed *botcli.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Line, "this is not json")

	assert.True(t, s.Alive())
	assert.Equal(t, "discovery", status(t, s).Behaviors.Current)
}

func TestSession_NoiseIsSkipped(t *testing.T) {
	s := startSession(t)

	resp, err := s.ExecuteLine(context.Background(), "noise")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Raw))
}

func TestSession_LogPrefixedLinesDoNotShiftReplies(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	for _, want := range []string{"first", "second"} {
		resp, err := s.ExecuteLine(ctx, "logged echo "+want)
		require.NoError(t, err)

		var got struct {
			Echo string `json:"echo"`
		}
		require.NoError(t, resp.Decode(&got))
		assert.Equal(t, want, got.Echo)
	}
}

func TestSession_FragmentedResponse(t *testing.T) {
	s := startSession(t)

	resp, err := s.ExecuteLine(context.Background(), "fragment")
	require.NoError(t, err)

	var st statusView
	require.NoError(t, resp.Decode(&st))
	assert.Equal(t, "discovery", st.Behaviors.Current)

	// Nothing from the fragmented value leaks into the next response.
	assert.Equal(t, "discovery", status(t, s).Behaviors.Current)
}

func TestSession_ProcessCrash(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	_, err := s.ExecuteLine(ctx, "crash")
	assert.ErrorIs(t, err, botcli.ErrProcessTerminated)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.False(t, s.Alive())

	_, err = s.Execute(ctx, botcli.NewCommand("status"))
	assert.ErrorIs(t, err, botcli.ErrProcessTerminated)
}

func TestSession_ContextCancelTerminatesProcess(t *testing.T) {
	s := startSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := s.ExecuteLine(ctx, "hang")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = s.Execute(context.Background(), botcli.NewCommand("status"))
	assert.ErrorIs(t, err, botcli.ErrProcessTerminated)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed")
	}
}

func TestSession_CleanupIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := botcli.New(fakebot.SessionConfig(storyBotDir(t)))
	require.NoError(t, s.Start(context.Background()))
	_ = status(t, s)

	require.NoError(t, s.Cleanup())
	require.NoError(t, s.Cleanup())

	done := make(chan error, 1)
	go func() {
		_, err := s.Execute(context.Background(), botcli.NewCommand("status"))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, botcli.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute hung after Cleanup")
	}
	assert.ErrorIs(t, s.Start(context.Background()), botcli.ErrClosed)
}

func TestSession_CleanupWithoutStart(t *testing.T) {
	s := botcli.New(fakebot.SessionConfig(storyBotDir(t)))
	require.NoError(t, s.Cleanup())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestSession_ExecuteBeforeStart(t *testing.T) {
	s := botcli.New(fakebot.SessionConfig(storyBotDir(t)))
	defer s.Cleanup()

	_, err := s.Execute(context.Background(), botcli.NewCommand("status"))
	assert.ErrorIs(t, err, botcli.ErrNotStarted)
}

func TestSession_SpawnFailure(t *testing.T) {
	s := botcli.New(botcli.Config{
		Command: filepath.Join(t.TempDir(), "no-such-bot"),
		Dir:     t.TempDir(),
	})
	defer s.Cleanup()

	err := s.Start(context.Background())
	var spawnErr *botcli.SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.False(t, s.Alive())
	assert.False(t, errors.Is(err, botcli.ErrProcessTerminated))
}

func TestSession_RejectsEncodingErrors(t *testing.T) {
	s := startSession(t)

	_, err := s.Execute(context.Background(), botcli.NewCommand("scope").With(botcli.Positional("a\nb")))
	require.Error(t, err)
	assert.True(t, s.Alive())
}
