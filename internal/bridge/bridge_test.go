package bridge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeGlove struct {
	chunks      []string
	bufferedErr error
	readErr     error
	reads       int
}

func (g *fakeGlove) Buffered() (int, error) {
	if g.bufferedErr != nil {
		return 0, g.bufferedErr
	}
	if len(g.chunks) == 0 {
		return 0, nil
	}
	return len(g.chunks[0]), nil
}

func (g *fakeGlove) Read(p []byte) (int, error) {
	g.reads++
	if g.readErr != nil {
		return 0, g.readErr
	}
	if len(g.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, g.chunks[0])
	g.chunks = g.chunks[1:]
	return n, nil
}

type fakeRobot struct {
	written []string
	err     error
}

func (r *fakeRobot) WriteString(s string) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.written = append(r.written, s)
	return len(s), nil
}

type recorder struct {
	decisions []Decision
}

func (r *recorder) Report(d Decision) { r.decisions = append(r.decisions, d) }

func testConfig() Config {
	return Config{
		PollInterval:    time.Millisecond,
		IdleReportEvery: 100,
		ReadBufferSize:  255,
	}
}

func TestStepForwardsCommands(t *testing.T) {
	glove := &fakeGlove{chunks: []string{
		"Pitch: 40 Roll: 0\n",
		"Pitch: -40 Roll: 0\n",
		"Pitch: 0 Roll: 45\n",
		"Pitch: 0 Roll: -45\n",
		"Pitch: 5 Roll: 5\n",
		"Pitch: 40 Roll: 40\n",
	}}
	robot := &fakeRobot{}
	rec := &recorder{}
	b := New(glove, robot, testConfig(), zerolog.Nop())
	b.SetReporter(rec)

	for i := 0; i < 6; i++ {
		b.Step()
	}

	require.Equal(t, []string{"L", "R", "U", "D", "S", "L"}, robot.written)
	require.Len(t, rec.decisions, 6)
	require.Equal(t, Decision{Pitch: 40, Roll: 40, Command: "L", Sent: true, Time: rec.decisions[5].Time}, rec.decisions[5])
	require.Equal(t, 40.0, rec.decisions[5].Pose().Pitch)
}

func TestStepSkipsUnparsableData(t *testing.T) {
	glove := &fakeGlove{chunks: []string{"booting IMU...\n", "pitch:200roll:abc"}}
	robot := &fakeRobot{}
	rec := &recorder{}
	b := New(glove, robot, testConfig(), zerolog.Nop())
	b.SetReporter(rec)

	b.Step()
	b.Step()

	require.Empty(t, robot.written)
	require.Empty(t, rec.decisions)
	require.Equal(t, 2, glove.reads)
}

func TestIdleStatusEveryHundredPolls(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig()
	cfg.PollInterval = 50 * time.Millisecond
	b := New(&fakeGlove{}, &fakeRobot{}, cfg, zerolog.New(&out))

	for i := 0; i < 250; i++ {
		b.Step()
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"seconds":5`)
	require.Contains(t, lines[0], "waiting for glove data")
	require.Contains(t, lines[1], `"seconds":10`)
	require.Equal(t, 250, b.Idle())
}

func TestIdleCounterResetsOnParsedSample(t *testing.T) {
	glove := &fakeGlove{}
	b := New(glove, &fakeRobot{}, testConfig(), zerolog.Nop())

	for i := 0; i < 7; i++ {
		b.Step()
	}
	require.Equal(t, 7, b.Idle())

	glove.chunks = []string{"garbage"}
	b.Step()
	require.Equal(t, 7, b.Idle(), "unparsable data is not idle and does not reset")

	glove.chunks = []string{"Pitch: 0 Roll: 0"}
	b.Step()
	require.Zero(t, b.Idle())
}

func TestStepSurvivesIOErrors(t *testing.T) {
	glove := &fakeGlove{chunks: []string{"Pitch: 0 Roll: 0"}, readErr: errors.New("input/output error")}
	robot := &fakeRobot{}
	b := New(glove, robot, testConfig(), zerolog.Nop())

	b.Step()
	require.Empty(t, robot.written)

	glove.readErr = nil
	robot.err = errors.New("robot unplugged")
	rec := &recorder{}
	b.SetReporter(rec)
	b.Step()
	require.Len(t, rec.decisions, 1)
	require.False(t, rec.decisions[0].Sent)
	require.Equal(t, "S", rec.decisions[0].Command)

	glove.bufferedErr = errors.New("ioctl failed")
	b.Step()
	require.Equal(t, 1, b.Idle())
}

func TestStepProbesWhenBufferedUnsupported(t *testing.T) {
	glove := &fakeGlove{bufferedErr: errors.ErrUnsupported}
	robot := &fakeRobot{}
	b := New(glove, robot, testConfig(), zerolog.Nop())

	b.Step()
	require.Equal(t, 1, glove.reads)
	require.Equal(t, 1, b.Idle())

	glove.chunks = []string{"Roll: -50 Pitch: 3"}
	b.Step()
	require.Equal(t, []string{"D"}, robot.written)
}

func TestRunSendsStopOnCancel(t *testing.T) {
	glove := &fakeGlove{chunks: []string{"Pitch: 45 Roll: 0"}}
	robot := &fakeRobot{}
	cfg := testConfig()
	cfg.StopSettle = 5 * time.Millisecond
	b := New(glove, robot, cfg, zerolog.Nop())

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, b.Run(ctx))
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond+cfg.StopSettle)

	require.Equal(t, []string{"L", "S"}, robot.written)
}

func TestRunWithCancelledContextOnlyStops(t *testing.T) {
	glove := &fakeGlove{chunks: []string{"Pitch: 45 Roll: 0"}}
	robot := &fakeRobot{}
	b := New(glove, robot, testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Run(ctx))

	require.Equal(t, []string{"S"}, robot.written)
	require.Zero(t, glove.reads)
}

func TestNewAppliesDefaults(t *testing.T) {
	b := New(&fakeGlove{}, &fakeRobot{}, Config{StopSettle: -1}, zerolog.Nop())
	require.Equal(t, DefaultConfig().PollInterval, b.cfg.PollInterval)
	require.Equal(t, 100, b.cfg.IdleReportEvery)
	require.Len(t, b.buf, 255)
	require.Zero(t, b.cfg.StopSettle)
}
