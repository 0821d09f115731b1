package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"ordmap/infra/logger"
	"ordmap/service"
)

func newTestClient(t *testing.T, opts service.Options) *Client {
	t.Helper()
	opts.Logger = logger.Discard()
	store := service.NewStore(opts)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger.Discard())))
	RegisterOrderedMapServer(srv, NewServer(store))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, service.Options{})

	res, err := c.Put(ctx, "alpha", "1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Revision)

	res, err = c.Put(ctx, "alpha", "2")
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	v, found, err := c.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", v)

	_, found, err = c.Get(ctx, "beta")
	require.NoError(t, err, "missing keys are not an error")
	assert.False(t, found)

	res, deleted, err := c.Delete(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, uint64(3), res.Revision)

	_, deleted, err = c.Delete(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestScanMinMaxDump(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, service.Options{})
	for _, k := range []string{"5", "3", "8", "1", "4"} {
		_, err := c.Put(ctx, k, "v"+k)
		require.NoError(t, err)
	}

	entries, err := c.Scan(ctx, service.ScanRequest{From: "3", To: "8"})
	require.NoError(t, err)
	assert.Equal(t, []service.Entry{{Key: "3", Value: "v3"}, {Key: "4", Value: "v4"}, {Key: "5", Value: "v5"}}, entries)

	entries, err = c.Scan(ctx, service.ScanRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	e, ok, err := c.Min(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", e.Key)

	e, ok, err = c.Max(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v8", e.Value)

	pre, err := c.Dump(ctx, service.OrderPre)
	require.NoError(t, err)
	keys := make([]string, len(pre))
	for i, e := range pre {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"5", "3", "1", "4", "8"}, keys)

	_, err = c.Dump(ctx, "sideways")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStatsAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, service.Options{Capacity: 100})
	for _, k := range []string{"a", "b", "c"} {
		_, err := c.Put(ctx, k, "")
		require.NoError(t, err)
	}

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 2, st.Height)
	assert.Equal(t, 100, st.Capacity)
	assert.Equal(t, uint64(3), st.Revision)
	assert.True(t, st.Balanced)

	cleared, rev, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cleared)
	assert.Equal(t, uint64(6), rev)

	_, ok, err := c.Min(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, service.Options{Capacity: 1})

	_, err := c.Put(ctx, "", "x")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, _, err = c.Get(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Put(ctx, "a", "1")
	require.NoError(t, err)
	_, err = c.Put(ctx, "b", "2")
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}
