package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightdesk/workflow/internal/capability"
	"github.com/brightdesk/workflow/internal/decompose"
)

// registerDemoHandlers installs simulated capability handlers so the CLI
// can exercise the full pipeline without real backend integrations. A
// production host registers its own handlers instead.
func registerDemoHandlers(r *capability.Registry) {
	r.Register(decompose.PassthroughCapability, capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			request, _ := params["request"].(string)
			return &capability.Result{
				Success: true,
				Message: fmt.Sprintf("Handled: %s", strings.TrimSpace(request)),
				Payload: map[string]any{"request": request},
			}, nil
		}))

	r.Register("find_slot", capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			slot := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
			return &capability.Result{
				Success: true,
				Message: "Found a free slot.",
				Payload: map[string]any{"slot": slot.Format(time.RFC3339)},
			}, nil
		}))

	r.Register("book_meeting", capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			return &capability.Result{
				Success: true,
				Message: "Meeting booked.",
				Payload: map[string]any{"event_id": fmt.Sprintf("evt-%d", time.Now().Unix())},
			}, nil
		}))

	r.Register("send_message", capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			return &capability.Result{
				Success: true,
				Message: "Message sent.",
				Payload: map[string]any{"delivered": true},
			}, nil
		}))

	r.Register("resolve_recipients", capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			return &capability.Result{
				Success: true,
				Message: "Recipients resolved.",
				Payload: map[string]any{"recipients": []string{"team@" + tenant}},
			}, nil
		}))

	r.Register("collect_data", capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			return &capability.Result{
				Success: true,
				Message: "Data collected.",
				Payload: map[string]any{"rows": 42},
			}, nil
		}))

	r.Register("generate_report", capability.HandlerFunc(
		func(ctx context.Context, params map[string]any, tenant string) (*capability.Result, error) {
			return &capability.Result{
				Success: true,
				Message: "Report generated.",
				Payload: map[string]any{"report": "weekly-summary.pdf"},
			}, nil
		}))
}
