package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/pos-invoice/internal/core/domain"
)

type errorClass struct {
	httpStatus int
	grpcCode   codes.Code
	message    string
}

// classify maps service errors to transport status. Commit errors are checked
// first: they wrap ErrStoreUnavailable but writes may already be applied.
func classify(err error) errorClass {
	var commitErr *domain.CommitError
	switch {
	case errors.As(err, &commitErr):
		return errorClass{http.StatusInternalServerError, codes.Internal, "commit failed at " + string(commitErr.Stage)}
	case errors.Is(err, domain.ErrDuplicateRequest):
		return errorClass{http.StatusConflict, codes.AlreadyExists, "duplicate request"}
	case errors.Is(err, domain.ErrStockConflict):
		return errorClass{http.StatusConflict, codes.Aborted, "stock changed, please retry"}
	case errors.Is(err, domain.ErrInsufficientStock):
		return errorClass{http.StatusUnprocessableEntity, codes.FailedPrecondition, err.Error()}
	case errors.Is(err, domain.ErrUnknownProduct):
		return errorClass{http.StatusUnprocessableEntity, codes.InvalidArgument, err.Error()}
	case domain.IsValidation(err):
		return errorClass{http.StatusBadRequest, codes.InvalidArgument, err.Error()}
	case errors.Is(err, domain.ErrStoreUnavailable):
		return errorClass{http.StatusServiceUnavailable, codes.Unavailable, "store unavailable"}
	default:
		return errorClass{http.StatusInternalServerError, codes.Internal, "internal error"}
	}
}
