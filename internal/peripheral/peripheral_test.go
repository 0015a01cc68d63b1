package peripheral

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_arm/internal/imu"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

type fakeSource struct {
	raw imu.IMURaw
	err error
}

func (f *fakeSource) NextRaw() (imu.IMURaw, error) { return f.raw, f.err }

type fakeService struct {
	mu        sync.Mutex
	address   string
	connected bool
	updates   [][2]string
	err       error
	// disconnectAfter drops the central after that many updates.
	disconnectAfter int
}

func (f *fakeService) Central() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address, f.connected
}

func (f *fakeService) Update(pitch, roll string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, [2]string{pitch, roll})
	if f.disconnectAfter > 0 && len(f.updates) >= f.disconnectAfter {
		f.connected = false
	}
	return nil
}

type poseRecorder struct{ poses []orientation.Pose }

func (r *poseRecorder) PublishPose(p orientation.Pose) { r.poses = append(r.poses, p) }

func TestStepPublishesFormattedPose(t *testing.T) {
	// Flat, gravity on +Z.
	src := &fakeSource{raw: imu.IMURaw{Ax: 0, Ay: 0, Az: 16384}}
	svc := &fakeService{address: "AA", connected: true}
	rec := &poseRecorder{}
	p := New(src, svc, DefaultConfig(), zerolog.Nop())
	p.SetSink(rec)

	require.True(t, p.Step())
	require.Equal(t, [][2]string{{"0.00", "0.00"}}, svc.updates)
	require.Len(t, rec.poses, 1)

	// Rolled 90° onto +Y.
	src.raw = imu.IMURaw{Ay: 16384}
	require.True(t, p.Step())
	require.Equal(t, [2]string{"0.00", "90.00"}, svc.updates[1])

	// Nose down: -X carries gravity, pitch +90.
	src.raw = imu.IMURaw{Ax: -16384}
	require.True(t, p.Step())
	require.Equal(t, "90.00", svc.updates[2][0])
}

func TestStepFailures(t *testing.T) {
	src := &fakeSource{err: errors.New("spi: timeout")}
	svc := &fakeService{connected: true}
	rec := &poseRecorder{}
	p := New(src, svc, DefaultConfig(), zerolog.Nop())
	p.SetSink(rec)

	require.False(t, p.Step())
	require.Empty(t, svc.updates)

	src.err = nil
	svc.err = errors.New("not connected")
	require.False(t, p.Step())
	require.Empty(t, rec.poses)
}

func TestStepLogsPoseEvenWhenUpdateFails(t *testing.T) {
	var out bytes.Buffer
	src := &fakeSource{raw: imu.IMURaw{Ay: 16384}}
	svc := &fakeService{connected: true, err: errors.New("write failed")}
	p := New(src, svc, DefaultConfig(), zerolog.New(&out))

	require.False(t, p.Step())

	logs := out.String()
	require.Contains(t, logs, `"roll":90`)
	require.Contains(t, logs, `"ay":16384`)
	require.Less(t, strings.Index(logs, `"message":"pose"`), strings.Index(logs, "characteristic update failed"))
}

func TestRunLogsConnectAndDisconnect(t *testing.T) {
	var out bytes.Buffer
	src := &fakeSource{raw: imu.IMURaw{Az: 16384}}
	svc := &fakeService{address: "AA:BB:CC:DD:EE:FF", connected: true, disconnectAfter: 3}
	p := New(src, svc, Config{UpdateInterval: time.Millisecond, IdleInterval: time.Millisecond}, zerolog.New(&out))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	require.Len(t, svc.updates, 3)
	logs := out.String()
	require.Contains(t, logs, `"central":"AA:BB:CC:DD:EE:FF","message":"connected to central"`)
	require.Contains(t, logs, `"central":"AA:BB:CC:DD:EE:FF","message":"disconnected from central"`)
	require.Equal(t, 3, strings.Count(logs, `"message":"pose"`))
}

func TestRunIdlesWithoutCentral(t *testing.T) {
	svc := &fakeService{}
	p := New(&fakeSource{}, svc, Config{}, zerolog.Nop())
	require.Equal(t, DefaultConfig(), p.cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.Empty(t, svc.updates)
}
