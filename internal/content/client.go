package content

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/chalktalk/lesson-controller/internal/lesson"
	"github.com/chalktalk/lesson-controller/internal/session"
	"github.com/chalktalk/lesson-controller/internal/timeline"
)

// #region method-paths

const (
	methodNextBlock            = "/chalktalk.ContentPlanner/NextBlock"
	methodInterruptionResponse = "/chalktalk.ContentPlanner/InterruptionResponse"
	methodRemedialBlock        = "/chalktalk.ContentPlanner/RemedialBlock"
)

// #endregion

// #region client-struct

// Client wraps the gRPC connection to the content-planning service.
// Payloads travel as JSON (see codec.go), so the service side needs no
// shared generated bindings.
type Client struct {
	conn *grpc.ClientConn
}

// #endregion

// #region constructor

// NewClient connects to the content-planning gRPC server.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// #endregion

// #region close

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// #endregion

// #region next-block

// NextBlock requests the block for the given phase kind.
func (c *Client) NextBlock(ctx context.Context, sctx session.Context, kind timeline.BlockKind) (timeline.TeachingBlock, error) {
	req := blockRequest{SessionContext: sctx, BlockKind: string(kind)}
	var resp blockResponse
	if err := c.invoke(ctx, methodNextBlock, &req, &resp); err != nil {
		return timeline.TeachingBlock{}, err
	}
	return resp.toBlock()
}

// #endregion

// #region interruption-response

// InterruptionResponse requests a contextual reply to an utterance.
func (c *Client) InterruptionResponse(ctx context.Context, sctx session.Context, utterance string) (timeline.TeachingBlock, error) {
	req := interruptionRequest{SessionContext: sctx, Utterance: utterance}
	var resp blockResponse
	if err := c.invoke(ctx, methodInterruptionResponse, &req, &resp); err != nil {
		return timeline.TeachingBlock{}, err
	}
	return resp.toBlock()
}

// #endregion

// #region remedial-block

// RemedialBlock requests an explanation of a failed submission.
func (c *Client) RemedialBlock(ctx context.Context, sctx session.Context, result lesson.SubmissionResult) (timeline.TeachingBlock, error) {
	req := remedialRequest{
		SessionContext: sctx,
		Passed:         result.Passed,
		Indeterminate:  result.Indeterminate,
		Feedback:       result.Feedback,
	}
	var resp blockResponse
	if err := c.invoke(ctx, methodRemedialBlock, &req, &resp); err != nil {
		return timeline.TeachingBlock{}, err
	}
	return resp.toBlock()
}

// #endregion

// #region invoke

// invoke performs one unary call and maps transport-level unavailability
// to ErrContentUnavailable so the loop can stall-and-retry.
func (c *Client) invoke(ctx context.Context, method string, req, resp interface{}) error {
	err := c.conn.Invoke(ctx, method, req, resp)
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%s: %v: %w", method, err, ErrContentUnavailable)
	default:
		return fmt.Errorf("%s: %w", method, err)
	}
}

// #endregion
