package bootstrap

import (
	"fmt"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/bookingapi"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	appconfig "github.com/wolfman30/estetica-booking/internal/config"
	"github.com/wolfman30/estetica-booking/internal/observability/metrics"
	"github.com/wolfman30/estetica-booking/internal/payments"
	"github.com/wolfman30/estetica-booking/internal/web"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// BuildCatalog builds the service catalog with the configured coupon rules.
func BuildCatalog(cfg *appconfig.Config) (*catalog.Catalog, error) {
	coupons, err := catalog.ParseCoupons(cfg.CouponRules)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: coupon rules: %w", err)
	}
	if len(coupons) == 0 {
		coupons = catalog.DefaultCoupons()
	}
	return catalog.Default(coupons), nil
}

// BuildFormFactory returns the factory the session registry uses for new
// sessions. All forms share one storage client.
func BuildFormFactory(cfg *appconfig.Config, cat *catalog.Catalog, m *metrics.BookingMetrics, logger *logging.Logger) web.FormFactory {
	store := bookingapi.NewClient(cfg.BookingStoreURL, cfg.UpstreamTimeout, logger).WithObserver(m)
	return func() *booking.Form {
		return booking.NewForm(booking.FormConfig{
			Catalog:    cat,
			Store:      store,
			Recorder:   m,
			ResetDelay: cfg.FormResetDelay,
			Logger:     logger,
		})
	}
}

// BuildHandoff wires the checkout hand-off against the payment backend, or
// against a dry-run provider when PAYMENT_DRY_RUN is set.
func BuildHandoff(cfg *appconfig.Config, cat *catalog.Catalog, ledger payments.Ledger, m *metrics.BookingMetrics, logger *logging.Logger) *payments.Handoff {
	if logger == nil {
		logger = logging.Default()
	}
	var provider payments.Provider
	if cfg.PaymentDryRun {
		logger.Warn("payment dry run enabled; no orders reach the payment backend")
		provider = payments.DryRunProvider{Currency: cfg.CheckoutCurrency}
	} else {
		provider = payments.NewProviderClient(
			cfg.PaymentAPIBaseURL,
			cfg.PaymentKeyPath,
			cfg.PaymentOrderPath,
			cfg.UpstreamTimeout,
			logger,
		).WithObserver(m)
	}
	return payments.NewHandoff(payments.HandoffConfig{
		Catalog:  cat,
		Provider: provider,
		Ledger:   ledger,
		Recorder: m,
		Logger:   logger,
		Display: payments.Display{
			Currency:    cfg.CheckoutCurrency,
			Name:        cfg.CheckoutName,
			Description: cfg.CheckoutDescription,
			ImageURL:    cfg.CheckoutImageURL,
			ThemeColor:  cfg.CheckoutThemeColor,
			AddressNote: cfg.CheckoutAddressNote,
			CallbackURL: cfg.PaymentCallbackURL,
			Prefill: payments.Prefill{
				Name:    cfg.CheckoutPrefillName,
				Email:   cfg.CheckoutPrefillEmail,
				Contact: cfg.CheckoutPrefillContact,
			},
		},
	})
}
