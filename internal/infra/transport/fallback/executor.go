package fallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mkrupp/voicechat/internal/domain"
	context_ "github.com/mkrupp/voicechat/internal/infra/context"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/metrics"
	transport "github.com/mkrupp/voicechat/internal/infra/transport/http"
)

// AttemptSeparator joins the texts of failed attempts.
const AttemptSeparator = " | "

// ErrEmptyPlan is returned when a Plan has no variants.
var ErrEmptyPlan = errors.New("plan has no variants")

// Executor runs Plans against the chat backend.
type Executor struct {
	doer         transport.Doer
	authVariants []AuthVariant
	metrics      *metrics.ClientMetrics
	log          logging.Logger
}

// NewExecutor creates an Executor. Without explicit auth variants,
// DefaultAuthVariants is used.
func NewExecutor(doer transport.Doer, m *metrics.ClientMetrics, authVariants ...AuthVariant) *Executor {
	if len(authVariants) == 0 {
		authVariants = DefaultAuthVariants()
	}

	return &Executor{
		doer:         doer,
		authVariants: authVariants,
		metrics:      m,
		log:          logging.GetLogger("infra.transport.fallback"),
	}
}

type attempt struct {
	resp *transport.Response
	err  error
	text string
	ok   bool
}

// label prefixes the attempt text in failure messages.
func label(method string, auth AuthVariant) string {
	if auth.Format == nil {
		return method
	}

	return method + " " + auth.Name
}

// Execute sends req once per method variant of the plan and, within each
// method variant, once per auth variant, until a response is accepted.
// Method and Path of req are taken from the variant. An empty token sends a
// single attempt per method variant without Authorization header.
//
// All attempts share one request ID. On exhaustion the returned error is a
// *domain.Failure whose message joins the text of every failed attempt.
func (e *Executor) Execute(
	ctx context.Context,
	plan Plan,
	token string,
	req transport.Request,
) (resp *transport.Response, err error) {
	log := e.log.With(logging.Group("plan",
		"op", plan.Op,
		"variants", len(plan.Variants),
	))

	if len(plan.Variants) == 0 {
		return nil, domain.NewFailure(domain.KindValidation, plan.Op, plan.Op+" failed: "+ErrEmptyPlan.Error(), ErrEmptyPlan)
	}

	if _, ok := context_.RequestIDFromContext(ctx); !ok {
		ctx = context_.WithRequestID(ctx, transport.NewRequestID())
	}

	ctx = context_.WithOperation(ctx, plan.Op)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "all variants failed", "error", err)
		}
	}()

	bare := BareToken(token)

	authVariants := e.authVariants
	if bare == "" {
		authVariants = []AuthVariant{noAuth}
	}

	var (
		texts    []string
		attempts []attempt
	)

	for _, variant := range plan.Variants {
		accepted, failed, failedTexts := e.tryVariant(ctx, plan, variant, authVariants, bare, req)
		if accepted != nil {
			return accepted.resp, nil
		}

		texts = append(texts, failedTexts...)
		attempts = append(attempts, failed...)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, e.failure(plan, texts, attempts, ctxErr)
		}
	}

	return nil, e.failure(plan, texts, attempts, nil)
}

// tryVariant runs the auth variants for one method variant. It returns the
// accepted attempt, or every failed attempt with its labelled text.
func (e *Executor) tryVariant(
	ctx context.Context,
	plan Plan,
	variant Variant,
	authVariants []AuthVariant,
	bare string,
	req transport.Request,
) (*attempt, []attempt, []string) {
	var (
		failed []attempt
		texts  []string
	)

	req.Method = variant.Method
	req.Path = variant.Path

	for _, auth := range authVariants {
		attemptReq := req
		if auth.Format != nil {
			attemptReq = req.WithHeader(transport.AuthorizationHeader, auth.Format(bare))
		}

		result := e.try(ctx, plan, attemptReq)

		e.metrics.ObserveAttempt(plan.Op, variant.Method, auth.Name, outcome(result))

		e.log.DebugContext(ctx, "attempt", logging.Group("attempt",
			"method", variant.Method,
			"path", variant.Path,
			"auth", auth.Name,
			"status", status(result),
			"accepted", result.ok,
		))

		if result.ok {
			return &result, nil, nil
		}

		failed = append(failed, result)
		texts = append(texts, label(variant.Method, auth)+": "+result.text)

		// a 2xx response ends the auth variants even when its body is empty
		if (result.resp != nil && result.resp.OK()) || ctx.Err() != nil {
			break
		}
	}

	return nil, failed, texts
}

func (e *Executor) try(ctx context.Context, plan Plan, req transport.Request) attempt {
	resp, err := e.doer.Do(ctx, req)

	switch {
	case err != nil:
		return attempt{err: err, text: err.Error()}
	case !resp.OK():
		text := resp.Text()
		if text == "" {
			text = fmt.Sprintf("HTTP %d", resp.Status)
		}

		return attempt{resp: resp, text: text}
	case plan.ExpectBody && resp.Text() == "":
		return attempt{resp: resp, text: fmt.Sprintf("HTTP %d: %s", resp.Status, domain.ErrEmptyResponse)}
	default:
		return attempt{resp: resp, ok: true}
	}
}

func (e *Executor) failure(plan Plan, texts []string, attempts []attempt, cause error) *domain.Failure {
	kind := domain.KindTransport

	for _, a := range attempts {
		if a.resp != nil {
			kind = domain.KindHTTP

			break
		}
	}

	var last attempt
	if len(attempts) > 0 {
		last = attempts[len(attempts)-1]
	}

	if cause == nil {
		cause = last.err
	}

	if cause == nil && last.resp != nil && last.resp.OK() {
		cause = domain.ErrEmptyResponse
	}

	failure := domain.NewFailure(kind, plan.Op, plan.Op+" failed: "+strings.Join(texts, AttemptSeparator), cause)
	failure.Attempts = texts

	if resp := informative(attempts); resp != nil {
		failure.Status = resp.Status
		failure.Body = string(resp.Body)
	}

	return failure
}

// informative picks the response that best explains a failure: the last one
// whose credentials were not rejected, else the last response.
func informative(attempts []attempt) *transport.Response {
	var accepted, last *transport.Response

	for _, a := range attempts {
		if a.resp == nil {
			continue
		}

		last = a.resp

		if a.resp.Status != http.StatusUnauthorized && a.resp.Status != http.StatusForbidden {
			accepted = a.resp
		}
	}

	if accepted != nil {
		return accepted
	}

	return last
}

func outcome(a attempt) string {
	switch {
	case a.ok:
		return metrics.OutcomeSuccess
	case a.err != nil:
		return metrics.OutcomeTransport
	case a.resp != nil && a.resp.OK():
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeHTTPError
	}
}

func status(a attempt) int {
	if a.resp == nil {
		return 0
	}

	return a.resp.Status
}
