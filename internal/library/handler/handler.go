package handler

import (
	"net/http"

	httputil "library/pkg/http"
	"library/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const apiPrefix = "/api/v1"

func writeError(log *logger.Logger, w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func writeSuccess(log *logger.Logger, w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func writeCreated(log *logger.Logger, w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteCreated(w, data); err != nil {
		log.Error("failed to write created response", "handler", handler, "operation", "WriteCreated", "error", err)
	}
}

func writePaginated[T any](log *logger.Logger, w http.ResponseWriter, handler string, data []T, limit, offset int) {
	if data == nil {
		data = []T{}
	}
	if err := httputil.WritePaginated(w, data, limit, offset); err != nil {
		log.Error("failed to write paginated response", "handler", handler, "operation", "WritePaginated", "error", err)
	}
}

func pathID(ps httprouter.Params, name string) (int64, error) {
	return httputil.ParseID(name, ps.ByName("id"))
}
