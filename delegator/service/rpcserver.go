package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"github.com/omnistake/xcm-delegator/types"
)

type originCtxKey struct{}

// rpcServer exposes the coordinator operations over an HTTP JSON API.
// Callers authenticate with a bearer token which maps to their origin.
type rpcServer struct {
	app    *App
	tokens map[string]types.Origin
	logger *zap.Logger
}

func newRPCServer(app *App, logger *zap.Logger) *rpcServer {
	cfg := app.GetConfig().Coordinator
	tokens := make(map[string]types.Origin, len(cfg.Operators)+1)
	if cfg.ControlToken != "" {
		tokens[cfg.ControlToken] = types.Control()
	}
	for account, token := range cfg.Operators {
		tokens[token] = types.Operator(account)
	}

	return &rpcServer{app: app, tokens: tokens, logger: logger}
}

// NewRPCHandler returns the admin API of app.
func NewRPCHandler(app *App, logger *zap.Logger) http.Handler {
	return newRPCServer(app, logger).Handler()
}

func (r *rpcServer) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/healthcheck", r.registerHandler(r.healthCheck))

	mux.Group(func(mux chi.Router) {
		mux.Use(r.authenticate)

		mux.Get("/v1/pending-statuses", r.registerHandler(r.listPendingStatuses))

		mux.Route("/v1/protocols/{protocol}", func(mux chi.Router) {
			mux.Get("/delegators", r.registerHandler(r.listDelegators))
			mux.Post("/delegators", r.registerHandler(r.addDelegator))
			mux.Delete("/delegators/{delegator}", r.registerHandler(r.removeDelegator))
			mux.Get("/delegators/{delegator}/ledger", r.registerHandler(r.getLedger))
			mux.Put("/delegators/{delegator}/ledger", r.registerHandler(r.setLedger))
			mux.Get("/delegators/{delegator}/validators", r.registerHandler(r.listValidators))
			mux.Post("/delegators/{delegator}/validators", r.registerHandler(r.addValidator))
			mux.Delete("/delegators/{delegator}/validators/{validator}", r.registerHandler(r.removeValidator))
			mux.Post("/delegators/{delegator}/tasks", r.registerHandler(r.dispatchTask))

			mux.Get("/fees/{task}", r.registerHandler(r.getXcmTaskFee))
			mux.Put("/fees/{task}", r.registerHandler(r.setXcmTaskFee))
			mux.Put("/fee-rate", r.registerHandler(r.setProtocolFeeRate))

			mux.Get("/time-unit", r.registerHandler(r.getOngoingTimeUnit))
			mux.Post("/time-unit", r.registerHandler(r.updateOngoingTimeUnit))
			mux.Put("/time-unit-interval", r.registerHandler(r.setTimeUnitInterval))

			mux.Get("/exchange-rate", r.registerHandler(r.getExchangeRate))
			mux.Post("/exchange-rate", r.registerHandler(r.updateExchangeRate))
			mux.Put("/exchange-rate-limit", r.registerHandler(r.setExchangeRateLimit))
		})
	})

	return mux
}

func (r *rpcServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		origin, ok := r.tokens[token]
		if token == "" || !ok {
			writeResponse(w, r.logger, http.StatusUnauthorized, &ErrorResponse{Message: "missing or unknown API token"})
			return
		}
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), originCtxKey{}, origin)))
	})
}

func originFrom(req *http.Request) types.Origin {
	o, _ := req.Context().Value(originCtxKey{}).(types.Origin)
	return o
}

type handlerFunc func(req *http.Request) (int, interface{}, error)

func (r *rpcServer) registerHandler(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		status, res, err := h(req)
		if err != nil {
			status, errRes := r.errorResponse(req, err)
			writeResponse(w, r.logger, status, errRes)
			return
		}
		writeResponse(w, r.logger, status, res)
	}
}

// errorResponse maps coordinator errors to HTTP status codes. Internal
// errors are logged and hidden from the caller.
func (r *rpcServer) errorResponse(req *http.Request, err error) (int, *ErrorResponse) {
	var badRequest *badRequestError
	if errors.As(err, &badRequest) {
		return http.StatusBadRequest, &ErrorResponse{Message: err.Error()}
	}

	var domainErr *errorsmod.Error
	if !errors.As(err, &domainErr) || domainErr.Codespace() != types.ModuleName {
		r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		return http.StatusInternalServerError, &ErrorResponse{Message: "internal service error"}
	}

	res := &ErrorResponse{Codespace: domainErr.Codespace(), Code: domainErr.ABCICode(), Message: err.Error()}
	switch {
	case errors.Is(err, types.ErrNotAuthorized):
		return http.StatusForbidden, res
	case errors.Is(err, types.ErrDelegatorNotFound),
		errors.Is(err, types.ErrValidatorNotFound),
		errors.Is(err, types.ErrXcmFeeNotFound),
		errors.Is(err, types.ErrConfigurationNotFound),
		errors.Is(err, types.ErrTimeUnitNotFound):
		return http.StatusNotFound, res
	case errors.Is(err, types.ErrDelegatorAlreadyExists),
		errors.Is(err, types.ErrValidatorAlreadyExists),
		errors.Is(err, types.ErrLedgerNotEmpty):
		return http.StatusConflict, res
	case errors.Is(err, types.ErrSendFailure):
		return http.StatusBadGateway, res
	default:
		return http.StatusBadRequest, res
	}
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return e.err.Error()
}

func badRequest(format string, args ...interface{}) error {
	return &badRequestError{err: fmt.Errorf(format, args...)}
}

func writeResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, res interface{}) {
	respBytes, err := json.Marshal(res)
	if err != nil {
		logger.Error("failed to marshal response", zap.Error(err))
		http.Error(w, "Failed to process the request. Please try again later.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(respBytes) // nolint:errcheck
}

func decodeBody(req *http.Request, v interface{}) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func protocolParam(req *http.Request) (types.StakingProtocol, error) {
	p, err := types.ParseStakingProtocol(chi.URLParam(req, "protocol"))
	if err != nil {
		return 0, badRequest("%v", err)
	}
	return p, nil
}

func accountParam(req *http.Request, name string) (types.Account, error) {
	a, err := types.ParseAccount(chi.URLParam(req, name))
	if err != nil {
		return types.Account{}, badRequest("invalid %s: %v", name, err)
	}
	return a, nil
}

func protocolAndDelegator(req *http.Request) (types.StakingProtocol, types.Account, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, types.Account{}, err
	}
	d, err := accountParam(req, "delegator")
	if err != nil {
		return 0, types.Account{}, err
	}
	return p, d, nil
}

func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, badRequest("invalid interval %q: %v", s, err)
	}
	return d, nil
}

func (r *rpcServer) healthCheck(*http.Request) (int, interface{}, error) {
	return http.StatusOK, &HealthResponse{Running: r.app.IsRunning()}, nil
}

func (r *rpcServer) listPendingStatuses(*http.Request) (int, interface{}, error) {
	list, err := r.app.Coordinator().PendingStatuses()
	if err != nil {
		return 0, nil, err
	}
	if list == nil {
		list = []*types.PendingStatus{}
	}
	return http.StatusOK, list, nil
}

func (r *rpcServer) listDelegators(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	entries, err := r.app.Coordinator().Delegators(p)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, entries, nil
}

func (r *rpcServer) addDelegator(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	var body AddDelegatorRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	entry, err := r.app.AddDelegator(req.Context(), originFrom(req), p, body.Index)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, entry, nil
}

func (r *rpcServer) removeDelegator(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	if err := r.app.RemoveDelegator(req.Context(), originFrom(req), p, d); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, struct{}{}, nil
}

func (r *rpcServer) getLedger(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	l, err := r.app.Coordinator().Ledger(p, d)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, l, nil
}

func (r *rpcServer) setLedger(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	var l types.Ledger
	if err := decodeBody(req, &l); err != nil {
		return 0, nil, err
	}
	if err := r.app.SetLedger(req.Context(), originFrom(req), p, d, &l); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, &l, nil
}

func (r *rpcServer) listValidators(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	vals, err := r.app.Coordinator().Validators(p, d)
	if err != nil {
		return 0, nil, err
	}
	if vals == nil {
		vals = []types.Account{}
	}
	return http.StatusOK, vals, nil
}

func (r *rpcServer) addValidator(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	var body ValidatorRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	if err := r.app.AddValidator(req.Context(), originFrom(req), p, d, body.Validator); err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, &body, nil
}

func (r *rpcServer) removeValidator(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	v, err := accountParam(req, "validator")
	if err != nil {
		return 0, nil, err
	}
	if err := r.app.RemoveValidator(req.Context(), originFrom(req), p, d, v); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, struct{}{}, nil
}

func (r *rpcServer) dispatchTask(req *http.Request) (int, interface{}, error) {
	p, d, err := protocolAndDelegator(req)
	if err != nil {
		return 0, nil, err
	}
	var task types.XcmTask
	if err := decodeBody(req, &task); err != nil {
		return 0, nil, err
	}
	queryID, err := r.app.DispatchTask(req.Context(), originFrom(req), p, d, task)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusAccepted, &DispatchTaskResponse{QueryID: queryID}, nil
}

func taskParam(req *http.Request) (types.StakingProtocol, types.TaskKind, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, 0, err
	}
	kind, err := types.ParseTaskKind(chi.URLParam(req, "task"))
	if err != nil {
		return 0, 0, badRequest("%v", err)
	}
	return p, kind, nil
}

func (r *rpcServer) getXcmTaskFee(req *http.Request) (int, interface{}, error) {
	p, kind, err := taskParam(req)
	if err != nil {
		return 0, nil, err
	}
	fee, err := r.app.Coordinator().XcmTaskFee(p, kind)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, fee, nil
}

func (r *rpcServer) setXcmTaskFee(req *http.Request) (int, interface{}, error) {
	p, kind, err := taskParam(req)
	if err != nil {
		return 0, nil, err
	}
	var fee types.XcmFee
	if err := decodeBody(req, &fee); err != nil {
		return 0, nil, err
	}
	if fee.Fee.IsNil() {
		return 0, nil, badRequest("missing fee")
	}
	if err := r.app.SetXcmTaskFee(req.Context(), originFrom(req), p, kind, fee); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, &fee, nil
}

func (r *rpcServer) setProtocolFeeRate(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	var body ProtocolFeeRateRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	if err := r.app.SetProtocolFeeRate(req.Context(), originFrom(req), p, body.Permill); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, &body, nil
}

func (r *rpcServer) getOngoingTimeUnit(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	unit, err := r.app.Coordinator().OngoingTimeUnit(p)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, unit, nil
}

func (r *rpcServer) updateOngoingTimeUnit(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	var body UpdateTimeUnitRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	unit, err := r.app.UpdateOngoingTimeUnit(req.Context(), originFrom(req), p, body.TimeUnit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, &unit, nil
}

func (r *rpcServer) setTimeUnitInterval(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	var body TimeUnitIntervalRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	interval, err := parseInterval(body.Interval)
	if err != nil {
		return 0, nil, err
	}
	if err := r.app.SetUpdateOngoingTimeUnitInterval(req.Context(), originFrom(req), p, interval); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, &body, nil
}

func (r *rpcServer) getExchangeRate(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	rate, err := r.app.Coordinator().ExchangeRate(req.Context(), p)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, rate, nil
}

func (r *rpcServer) updateExchangeRate(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	var body UpdateExchangeRateRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	if body.Observation.IsNil() {
		return 0, nil, badRequest("missing observation")
	}
	ev, err := r.app.UpdateTokenExchangeRate(req.Context(), originFrom(req), p, body.Delegator, body.Observation)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, ev, nil
}

func (r *rpcServer) setExchangeRateLimit(req *http.Request) (int, interface{}, error) {
	p, err := protocolParam(req)
	if err != nil {
		return 0, nil, err
	}
	var body ExchangeRateLimitRequest
	if err := decodeBody(req, &body); err != nil {
		return 0, nil, err
	}
	interval, err := parseInterval(body.Interval)
	if err != nil {
		return 0, nil, err
	}
	if err := r.app.SetUpdateTokenExchangeRateLimit(req.Context(), originFrom(req), p, interval, body.MaxPermill); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, &body, nil
}
