package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"instancectl/internal/logging"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
)

const (
	operationDone = "DONE"

	// DefaultPollInterval separates polls that return a still-running operation
	DefaultPollInterval = time.Second
)

// ErrOperationTimeout is returned when an operation does not finish in time
var ErrOperationTimeout = errors.New("timed out waiting for operation")

// OperationError is a terminal failure reported by the service for an operation
type OperationError struct {
	Operation  string // human-readable label, e.g. "instance start"
	ID         string // operation name
	Code       string
	Message    string
	HTTPStatus int
	Errors     []*compute.OperationErrorErrors
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("error during %s: [Code: %s]: %s (operation %s)", e.Operation, e.Code, e.Message, e.ID)
}

// Unwrap exposes the service's HTTP failure as a *googleapi.Error, if any
func (e *OperationError) Unwrap() error {
	if e.HTTPStatus == 0 {
		return nil
	}
	apiErr := &googleapi.Error{
		Code:    e.HTTPStatus,
		Message: e.Message,
	}
	for _, item := range e.Errors {
		apiErr.Errors = append(apiErr.Errors, googleapi.ErrorItem{
			Reason:  item.Code,
			Message: item.Message,
		})
	}
	return apiErr
}

// Waiter blocks on operation handles until they reach a terminal state
type Waiter struct {
	poller       OperationPoller
	logger       *zap.Logger
	pollInterval time.Duration
}

// NewWaiter creates a Waiter; a nil logger falls back to the default logger
func NewWaiter(poller OperationPoller, logger *zap.Logger) *Waiter {
	if logger == nil {
		logger = logging.Logger()
	}
	return &Waiter{
		poller:       poller,
		logger:       logger,
		pollInterval: DefaultPollInterval,
	}
}

// Wait blocks until op is DONE or timeout elapses.
// A terminal operation carrying an error code yields *OperationError even if
// it has a result; warnings are logged and never fail the wait.
func (w *Waiter) Wait(ctx context.Context, op *compute.Operation, label string, timeout time.Duration) (*compute.Operation, error) {
	if op == nil {
		return nil, fmt.Errorf("no operation to wait for during %s", label)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for op.Status != operationDone {
		w.logger.Debug("Waiting for operation",
			zap.String("operation", label),
			zap.String("operation_id", op.Name),
			zap.String("status", op.Status),
		)

		next, err := w.poller.WaitOperation(ctx, op)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, w.timeout(op, label, timeout)
			}
			return nil, fmt.Errorf("failed to wait for %s: %w", label, err)
		}
		if next == nil {
			return nil, fmt.Errorf("failed to wait for %s: empty operation returned", label)
		}
		op = next

		if op.Status != operationDone && w.pollInterval > 0 {
			select {
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, w.timeout(op, label, timeout)
				}
				return nil, fmt.Errorf("failed to wait for %s: %w", label, ctx.Err())
			case <-time.After(w.pollInterval):
			}
		}
	}

	w.logWarnings(op, label)

	if opErr := operationError(op, label); opErr != nil {
		w.logger.Error("Error during "+label,
			zap.String("operation", label),
			zap.String("code", opErr.Code),
			zap.String("message", logging.Truncate(opErr.Message)),
			zap.String("operation_id", op.Name),
		)
		return nil, opErr
	}

	return op, nil
}

func (w *Waiter) timeout(op *compute.Operation, label string, timeout time.Duration) error {
	w.logger.Error("Timed out waiting for operation",
		zap.String("operation", label),
		zap.String("operation_id", op.Name),
		zap.Duration("timeout", timeout),
	)
	return fmt.Errorf("%s (operation %s) after %v: %w", label, op.Name, timeout, ErrOperationTimeout)
}

func (w *Waiter) logWarnings(op *compute.Operation, label string) {
	for _, warning := range op.Warnings {
		w.logger.Warn("Warning during "+label,
			zap.String("operation", label),
			zap.String("code", warning.Code),
			zap.String("message", logging.Truncate(warning.Message)),
		)
	}
}

// operationError returns nil unless the terminal operation carries an error code
func operationError(op *compute.Operation, label string) *OperationError {
	var details []*compute.OperationErrorErrors
	if op.Error != nil {
		details = op.Error.Errors
	}
	if op.HttpErrorStatusCode == 0 && len(details) == 0 {
		return nil
	}

	opErr := &OperationError{
		Operation:  label,
		ID:         op.Name,
		HTTPStatus: int(op.HttpErrorStatusCode),
		Message:    op.HttpErrorMessage,
		Errors:     details,
	}
	if op.HttpErrorStatusCode != 0 {
		opErr.Code = strconv.FormatInt(op.HttpErrorStatusCode, 10)
	}
	if len(details) > 0 {
		opErr.Code = details[0].Code
		if details[0].Message != "" {
			opErr.Message = details[0].Message
		}
	}
	return opErr
}

// operationProject extracts the project from an operation self link such as
// https://www.googleapis.com/compute/v1/projects/<project>/zones/<zone>/operations/<name>
func operationProject(selfLink string) (string, error) {
	parts := strings.Split(selfLink, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "projects" && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("no project in operation link %q", selfLink)
}

// lastSegment returns the resource name at the end of a URL or partial path
func lastSegment(link string) string {
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}
