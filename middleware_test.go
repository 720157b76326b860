package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func callRequest(toolName string) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: toolName,
		},
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("fast handler passes through", func(t *testing.T) {
		mw := timeoutMiddleware(1 * time.Second)

		handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})

		result, err := handler(context.Background(), callRequest("list_mailboxes"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil {
			t.Fatal("expected non-nil result")
		}
	})

	t.Run("slow handler hits the deadline", func(t *testing.T) {
		mw := timeoutMiddleware(10 * time.Millisecond)

		handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(1 * time.Second):
				return mcp.NewToolResultText("too late"), nil
			}
		})

		_, err := handler(context.Background(), callRequest("search_emails"))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got: %v", err)
		}
	})
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		result  *mcp.CallToolResult
		err     error
		wantErr bool
	}{
		{"successful result", &mcp.CallToolResult{}, nil, false},
		{"handler error", nil, errors.New("handler failed"), true},
		{"result with IsError", &mcp.CallToolResult{IsError: true}, nil, false},
		{"nil result without error", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := loggingMiddleware()
			handler := mw(func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return tt.result, tt.err
			})

			result, err := handler(context.Background(), callRequest("get_email"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if result != tt.result {
				t.Errorf("result not passed through unchanged")
			}
		})
	}
}

func TestComposedMiddleware(t *testing.T) {
	t.Run("logging wraps timeout", func(t *testing.T) {
		// Match real registration order: logging outermost
		handler := loggingMiddleware()(timeoutMiddleware(100 * time.Millisecond)(
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText("ok"), nil
			}))

		result, err := handler(context.Background(), callRequest("list_events"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil {
			t.Fatal("expected non-nil result")
		}
	})

	t.Run("composed timeout still triggers", func(t *testing.T) {
		handler := loggingMiddleware()(timeoutMiddleware(10 * time.Millisecond)(
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(1 * time.Second):
					return mcp.NewToolResultText("too late"), nil
				}
			}))

		if _, err := handler(context.Background(), callRequest("create_event")); err == nil {
			t.Fatal("expected timeout error")
		}
	})
}
