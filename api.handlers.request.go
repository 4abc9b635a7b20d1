package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Plain text messages sent back when a request could not be served.
const (
	MsgLookupFailed        = "Error processing request."
	MsgContactUpdateFailed = "Error updating contact details."
	MsgContactSaveFailed   = "Error saving contact details."
	MsgContactRaceFailed   = "Error saving contact details (unique email issue)."
	MsgRequestSaveFailed   = "Error saving book request."
	MsgListFailed          = "Error retrieving book requests."
	MsgRenderFailed        = "Error rendering page."
)

// submitFailureMessage maps the failed submission stage to its client message.
func submitFailureMessage(err error) string {
	var se *SubmitError
	if !errors.As(err, &se) {
		return MsgLookupFailed
	}
	switch se.Stage {
	case StageContactUpdate:
		return MsgContactUpdateFailed
	case StageContactSave:
		return MsgContactSaveFailed
	case StageContactRefetch:
		return MsgContactRaceFailed
	case StageRequestSave:
		return MsgRequestSaveFailed
	default:
		return MsgLookupFailed
	}
}

// Index redirects visitors to the static landing page.
//
//	@Summary	Redirect to the landing page
//	@Tags		pages
//	@Success	302
//	@Router		/ [get]
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, api.config.Server.LandingPage, http.StatusFound)
}

// SubmitRequest records a book request posted from the request form
// and renders the confirmation page.
//
//	@Summary	Submit a book request
//	@Tags		requests
//	@Accept		x-www-form-urlencoded
//	@Produce	html
//	@Param		bookTitle		formData	string	true	"book title"
//	@Param		author			formData	string	true	"book author"
//	@Param		commentField	formData	string	false	"free text comments"
//	@Param		firstname		formData	string	true	"first name"
//	@Param		surname			formData	string	true	"surname"
//	@Param		email			formData	string	true	"email"
//	@Param		mobile			formData	string	false	"mobile"
//	@Param		newsletter		formData	string	false	"newsletter opt-in (on)"
//	@Success	200
//	@Failure	500	{string}	string
//	@Router		/submit-request [post]
func (api *APIHandler) SubmitRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.logger.With(zap.String("request.id", requestID))

	sub, err := ReadSubmissionForm(r)
	if err != nil {
		logger.Error("failed to read request form", zap.Error(err))
		if err = WritePlainError(r.Context(), w, http.StatusBadRequest, "Error reading request form."); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	logger.Info("received book request",
		zap.String("book.title", sub.BookTitle.String),
		zap.String("book.author", sub.Author.String),
		zap.String("book.comments", sub.Comments.String),
		zap.String("contact.firstname", sub.FirstName.String),
		zap.String("contact.surname", sub.Surname.String),
		zap.String("contact.email", sub.Email.String),
		zap.String("contact.mobile", sub.Mobile.String),
		zap.Bool("contact.newsletter", sub.Newsletter),
	)

	confirmation, err := api.requestService.Submit(r.Context(), sub)
	if err != nil {
		logger.Error("failed to submit book request", zap.Error(err))
		if err = WritePlainError(r.Context(), w, http.StatusInternalServerError, submitFailureMessage(err)); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	page, err := api.views.Render(ViewRequestSuccess, RequestSuccessPage{
		Title:   "Request Submitted",
		Request: confirmation.View(),
	})
	if err != nil {
		logger.Error("failed to render confirmation page", zap.Int64("request.num", confirmation.RequestID), zap.Error(err))
		if err = WritePlainError(r.Context(), w, http.StatusInternalServerError, MsgRenderFailed); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	if err = WriteHTML(r.Context(), w, http.StatusOK, page); err != nil {
		logger.Error("failed to send confirmation page", zap.Error(err))
	}
}

// ViewRequests renders all book requests with their contact details.
//
//	@Summary	List all book requests
//	@Tags		requests
//	@Produce	html
//	@Success	200
//	@Failure	500	{string}	string
//	@Router		/view-requests [get]
func (api *APIHandler) ViewRequests(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	logger := api.logger.With(zap.String("request.id", requestID))

	requests, err := api.requestService.List(r.Context())
	if err != nil {
		logger.Error("failed to retrieve all requests", zap.Error(err))
		if err = WritePlainError(r.Context(), w, http.StatusInternalServerError, MsgListFailed); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	page, err := api.views.Render(ViewAllRequests, AllRequestsPage{
		Title:    "All Book Requests",
		Requests: requests,
	})
	if err != nil {
		logger.Error("failed to render requests page", zap.Error(err))
		if err = WritePlainError(r.Context(), w, http.StatusInternalServerError, MsgRenderFailed); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	logger.Info("success to get all requests", zap.Int("requests.total", len(requests)))
	if err = WriteHTML(r.Context(), w, http.StatusOK, page); err != nil {
		logger.Error("failed to send requests page", zap.Error(err))
	}
}
