package fault

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcClass maps gRPC status codes onto the taxonomy, mirroring the HTTP
// rules: transport loss is network, deadline is timeout, server-side
// codes are server, caller mistakes are client.
func grpcClass(err error) (Class, int, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return ClassUnknown, 0, false
	}

	switch st.Code() {
	case codes.Unavailable:
		return ClassNetwork, 0, true
	case codes.DeadlineExceeded, codes.Canceled:
		return ClassTimeout, 0, true
	case codes.ResourceExhausted:
		return ClassRateLimited, http.StatusTooManyRequests, true
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return ClassValidation, 0, true
	case codes.Internal, codes.DataLoss:
		return ClassServer, http.StatusInternalServerError, true
	case codes.Unimplemented:
		return ClassServer, http.StatusNotImplemented, true
	case codes.NotFound, codes.AlreadyExists, codes.PermissionDenied,
		codes.Unauthenticated, codes.Aborted:
		return ClassClient, 0, true
	}

	return ClassUnknown, 0, false
}
