package grpcserver

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"ordmap/domain/rbtree"
	"ordmap/service"
)

// Server adapts service.Store to gRPC.
type Server struct {
	store *service.Store
}

var _ OrderedMapServer = (*Server)(nil)

func NewServer(store *service.Store) *Server {
	return &Server{store: store}
}

// -------------------- Commands --------------------

func (s *Server) Put(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.store.Put(ctx, stringField(req, "key"), stringField(req, "value"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"revision": res.Revision,
		"replaced": res.Replaced,
	})
}

func (s *Server) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := stringField(req, "key")
	if key == "" {
		return nil, toStatus(service.ErrEmptyKey)
	}
	res, ok := s.store.Delete(ctx, key)
	return newStruct(map[string]any{
		"deleted":  ok,
		"revision": res.Revision,
	})
}

func (s *Server) Clear(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	cleared, rev := s.store.Clear(ctx)
	return newStruct(map[string]any{
		"cleared":  cleared,
		"revision": rev,
	})
}

// -------------------- Queries --------------------

// Get answers {"found": false} for a missing key rather than NotFound.
func (s *Server) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key := stringField(req, "key")
	if key == "" {
		return nil, toStatus(service.ErrEmptyKey)
	}
	v, ok := s.store.Get(ctx, key)
	out := map[string]any{"found": ok}
	if ok {
		out["value"] = v
	}
	return newStruct(out)
}

func (s *Server) Min(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	e, ok := s.store.Min(ctx)
	return edgeResponse(e, ok)
}

func (s *Server) Max(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	e, ok := s.store.Max(ctx)
	return edgeResponse(e, ok)
}

func (s *Server) Scan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entries := s.store.Scan(ctx, service.ScanRequest{
		From:  stringField(req, "from"),
		To:    stringField(req, "to"),
		Limit: intField(req, "limit"),
	})
	return entriesResponse(entries)
}

func (s *Server) Dump(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	entries, err := s.store.Dump(ctx, service.Order(stringField(req, "order")))
	if err != nil {
		return nil, toStatus(err)
	}
	return entriesResponse(entries)
}

func (s *Server) Stats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st := s.store.Stats(ctx)
	return newStruct(map[string]any{
		"size":      st.Size,
		"height":    st.Height,
		"capacity":  st.Capacity,
		"revision":  st.Revision,
		"balanced":  st.Balanced,
		"violation": st.Violation,
	})
}

// -------------------- Interceptors --------------------

// LoggingInterceptor logs every call with its status code and latency.
func LoggingInterceptor(log *logrus.Entry) grpc.UnaryServerInterceptor {
	log = log.WithField("pkg", "grpcserver")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"method":  info.FullMethod,
			"code":    status.Code(err).String(),
			"elapsed": time.Since(start),
		})
		if err != nil {
			entry.WithError(err).Warn("rpc failed")
		} else {
			entry.Debug("rpc")
		}
		return resp, err
	}
}

// -------------------- Converters --------------------

func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyKey), errors.Is(err, service.ErrUnknownOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, rbtree.ErrAllocationFailure):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func edgeResponse(e service.Entry, ok bool) (*structpb.Struct, error) {
	out := map[string]any{"found": ok}
	if ok {
		out["key"] = e.Key
		out["value"] = e.Value
	}
	return newStruct(out)
}

func entriesResponse(entries []service.Entry) (*structpb.Struct, error) {
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = map[string]any{"key": e.Key, "value": e.Value}
	}
	return newStruct(map[string]any{"entries": list})
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func intField(s *structpb.Struct, name string) int {
	return int(s.GetFields()[name].GetNumberValue())
}
