package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/payment-dispatch/internal/adapter/braintree"
	"github.com/yourorg/payment-dispatch/internal/adapter/paypal"
	"github.com/yourorg/payment-dispatch/internal/adapter/stripe"
	"github.com/yourorg/payment-dispatch/internal/checkout"
	"github.com/yourorg/payment-dispatch/internal/config"
	"github.com/yourorg/payment-dispatch/internal/dispatcher"
	"github.com/yourorg/payment-dispatch/internal/health"
	"github.com/yourorg/payment-dispatch/internal/monitor"
	"github.com/yourorg/payment-dispatch/internal/payment"
	"github.com/yourorg/payment-dispatch/internal/policy"
	"github.com/yourorg/payment-dispatch/internal/registry"
	"github.com/yourorg/payment-dispatch/internal/reporting"
)

// providerCallTimeout bounds each checkout request's provider budget.
const providerCallTimeout = 15 * time.Second

type chargeRequestBody struct {
	Provider       string            `json:"provider"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	OrderRef       string            `json:"orderRef"`
	IdempotencyKey string            `json:"idempotencyKey"`
	Metadata       map[string]string `json:"metadata"`
}

type server struct {
	service  *checkout.Service
	contract *monitor.ContractMonitor
	registry *registry.Registry
	recorder *reporting.Recorder
}

func (s *server) checkoutHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	valid, violations, err := s.contract.Validate(body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request validation error"})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return
	}

	var req chargeRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), providerCallTimeout)
	defer cancel()

	result, err := s.service.Pay(ctx, req.Provider, payment.ChargeRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		OrderRef:       req.OrderRef,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error(), "code": payment.CodeOf(err)})
		return
	}

	c.JSON(statusForResult(result), result)
}

// statusForError maps the core's error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch payment.CodeOf(err) {
	case payment.CodeInvalidAmount, payment.CodeUnsupportedCurrency,
		payment.CodeInvalidStrategy, "MISSING_ORDER_REF":
		return http.StatusBadRequest
	case payment.CodeUnknownProvider:
		return http.StatusNotFound
	case checkout.CodeDuplicateRequest:
		return http.StatusConflict
	case health.CodeCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusForResult keeps declines and transport failures distinguishable
// at the HTTP layer: a failed charge is never presented as a decline.
func statusForResult(res payment.ChargeResult) int {
	switch res.Status {
	case payment.StatusSucceeded:
		return http.StatusOK
	case payment.StatusDeclined:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadGateway
	}
}

func (s *server) providersHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.registry.Providers()})
}

func (s *server) reportHandler(c *gin.Context) {
	c.JSON(http.StatusOK, reporting.Summarize(s.recorder.Entries()))
}

func setupRouter(s *server) *gin.Engine {
	engine := gin.Default()
	engine.POST("/v1/checkout", s.checkoutHandler)
	engine.GET("/v1/providers", s.providersHandler)
	engine.GET("/v1/report", s.reportHandler)
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

func buildRegistry(cfg config.Config) *registry.Registry {
	reg := registry.New()

	stripeAdapter := stripe.NewStripeAdapter(nil, cfg.StripeAPIKey)
	if cfg.StripeAPIURL != "" {
		stripeAdapter.WithBaseURL(cfg.StripeAPIURL)
	}
	braintreeAdapter := braintree.NewBraintreeAdapter(nil, cfg.BraintreeAPIKey)
	if cfg.BraintreeAPIURL != "" {
		braintreeAdapter.WithBaseURL(cfg.BraintreeAPIURL)
	}
	paypalAdapter := paypal.NewPayPalAdapter(nil, cfg.PayPalAPIKey)
	if cfg.PayPalAPIURL != "" {
		paypalAdapter.WithBaseURL(cfg.PayPalAPIURL)
	}

	if err := reg.Register(stripeAdapter.Name(), stripeAdapter); err != nil {
		log.Fatalf("registering stripe adapter: %v", err)
	}
	if err := reg.Register(braintreeAdapter.Name(), braintreeAdapter); err != nil {
		log.Fatalf("registering braintree adapter: %v", err)
	}
	if err := reg.Register(paypalAdapter.Name(), paypalAdapter); err != nil {
		log.Fatalf("registering paypal adapter: %v", err)
	}
	return reg
}

func buildServer(cfg config.Config) (*server, error) {
	contract, err := monitor.NewContractMonitor()
	if err != nil {
		return nil, err
	}

	reg := buildRegistry(cfg)
	disp := dispatcher.New(reg)
	guard := health.NewGuard()

	rules := []policy.RuleConfig{
		{Name: "RetryTransportFailures", Expression: "attempt_number < 3 && status == 'FAILED'"},
	}
	enforcer, err := policy.NewEnforcer(rules)
	if err != nil {
		return nil, err
	}

	var idem checkout.IdempotencyStore
	if cfg.RedisAddr != "" {
		idem = checkout.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}))
	} else {
		idem = checkout.NewMemoryStore()
	}

	recorder := reporting.NewRecorder()
	svc := checkout.NewService(disp, guard, enforcer, idem, recorder)

	return &server{
		service:  svc,
		contract: contract,
		registry: reg,
		recorder: recorder,
	}, nil
}

func initTracing() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func main() {
	cfg := config.Load()

	tp, err := initTracing()
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	srv, err := buildServer(cfg)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := setupRouter(srv).Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
