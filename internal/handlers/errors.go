package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/apperror"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// ErrorHandler renders application errors as JSON. Unclassified errors are
// logged with the request id and reported without details.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithFields(logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     c.Request().Method,
				"path":       c.Path(),
			}).Error("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.WithError(err).Warn("failed to write error response")
		}
	}
}

func render(err error) (int, ErrorResponse) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status := apperror.HTTPStatus(appErr.Kind)
		msg := appErr.Message
		if appErr.Kind == apperror.KindUnknown {
			msg = "Internal Server Error"
		}
		return status, ErrorResponse{Message: msg, MissingFields: appErr.Fields}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		} else if httpErr.Message != nil {
			msg = fmt.Sprint(httpErr.Message)
		}
		if httpErr.Code >= http.StatusInternalServerError {
			msg = "Internal Server Error"
		}
		return httpErr.Code, ErrorResponse{Message: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{Message: "Internal Server Error"}
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return apperror.Validation("Invalid request payload")
	}
	return nil
}

func paramID(c echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, apperror.Validation("Invalid id", name)
	}
	return id, nil
}
