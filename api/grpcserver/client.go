package grpcserver

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"ordmap/service"
)

// Client is a typed wrapper around the ordmap.v1.OrderedMap service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Put(ctx context.Context, key, value string) (service.Result, error) {
	var res service.Result
	err := c.call(ctx, MethodPut, map[string]any{"key": key, "value": value}, &res)
	return res, err
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	err := c.call(ctx, MethodGet, map[string]any{"key": key}, &res)
	return res.Value, res.Found, err
}

func (c *Client) Delete(ctx context.Context, key string) (service.Result, bool, error) {
	var res struct {
		Deleted  bool   `json:"deleted"`
		Revision uint64 `json:"revision"`
	}
	err := c.call(ctx, MethodDelete, map[string]any{"key": key}, &res)
	return service.Result{Revision: res.Revision}, res.Deleted, err
}

func (c *Client) Scan(ctx context.Context, req service.ScanRequest) ([]service.Entry, error) {
	var res struct {
		Entries []service.Entry `json:"entries"`
	}
	err := c.call(ctx, MethodScan, map[string]any{"from": req.From, "to": req.To, "limit": req.Limit}, &res)
	return res.Entries, err
}

func (c *Client) Min(ctx context.Context) (service.Entry, bool, error) {
	return c.edge(ctx, MethodMin)
}

func (c *Client) Max(ctx context.Context) (service.Entry, bool, error) {
	return c.edge(ctx, MethodMax)
}

func (c *Client) Stats(ctx context.Context) (service.Stats, error) {
	var st service.Stats
	err := c.call(ctx, MethodStats, nil, &st)
	return st, err
}

func (c *Client) Dump(ctx context.Context, order service.Order) ([]service.Entry, error) {
	var res struct {
		Entries []service.Entry `json:"entries"`
	}
	err := c.call(ctx, MethodDump, map[string]any{"order": string(order)}, &res)
	return res.Entries, err
}

func (c *Client) Clear(ctx context.Context) (int, uint64, error) {
	var res struct {
		Cleared  int    `json:"cleared"`
		Revision uint64 `json:"revision"`
	}
	err := c.call(ctx, MethodClear, nil, &res)
	return res.Cleared, res.Revision, err
}

func (c *Client) edge(ctx context.Context, method string) (service.Entry, bool, error) {
	var res struct {
		Found bool   `json:"found"`
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	err := c.call(ctx, method, nil, &res)
	return service.Entry{Key: res.Key, Value: res.Value}, res.Found, err
}

// call invokes method and decodes the Struct response into out through
// its JSON form.
func (c *Client) call(ctx context.Context, method string, req map[string]any, out any) error {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, resp); err != nil {
		return err
	}
	data, err := protojson.Marshal(resp)
	if err != nil {
		return errors.Wrap(err, "encode response")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s response", method)
	}
	return nil
}
