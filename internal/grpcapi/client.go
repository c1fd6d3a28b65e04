package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/service"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
	"github.com/BrandonDHaskell/Janus/server/internal/janus/wire"
)

// Client is a typed janus.v1.NetworkService client.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial opens a plaintext connection to addr. The service is meant to be
// reached over loopback or a trusted management network.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.NewClient(addr, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := wire.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return err
	}
	return wire.FromStruct(out, resp)
}

// ApplyAction reports Applied false, with a reason, when the action did not
// fit the network's state. That is not an error.
func (c *Client) ApplyAction(ctx context.Context, target string, action types.UserAction) (types.ActionReport, error) {
	var rep types.ActionReport
	err := c.invoke(ctx, methodApplyAction, ActionRequest{Target: target, Action: string(action)}, &rep)
	return rep, err
}

func (c *Client) GetNetwork(ctx context.Context, target string) (types.NetworkRecord, error) {
	var rec types.NetworkRecord
	err := c.invoke(ctx, methodGetNetwork, ActionRequest{Target: target}, &rec)
	return rec, err
}

func (c *Client) ListNetworks(ctx context.Context, req ListRequest) ([]types.NetworkSnapshot, error) {
	in, err := wire.ToStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(methodListNetworks), in, out); err != nil {
		return nil, err
	}
	return wire.ListFromStruct[types.NetworkSnapshot](out, "networks")
}

func (c *Client) ExportOverrides(ctx context.Context) (types.OverrideExport, error) {
	var exp types.OverrideExport
	err := c.invoke(ctx, methodExportOverrides, struct{}{}, &exp)
	return exp, err
}

func (c *Client) ImportOverrides(ctx context.Context, exp types.OverrideExport) (types.ImportReport, error) {
	var report types.ImportReport
	err := c.invoke(ctx, methodImportOverrides, exp, &report)
	return report, err
}

func (c *Client) RunScan(ctx context.Context, req ScanRequest) (service.CycleResult, error) {
	var res service.CycleResult
	err := c.invoke(ctx, methodRunScan, req, &res)
	return res, err
}
