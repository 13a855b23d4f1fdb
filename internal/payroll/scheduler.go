package payroll

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// StartScheduler runs gen on the given five-field cron spec. An empty spec
// disables scheduling and returns a nil cron. A run still in progress when
// the next tick fires causes that tick to be skipped.
func StartScheduler(spec string, gen Generator) (*cron.Cron, error) {
	if spec == "" {
		log.Info("payroll scheduler disabled (PAYROLL_CRON is empty)")
		return nil, nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		res, err := gen.Run(context.Background())
		if err != nil {
			log.Errorw("scheduled salary generation failed", "err", err)
			return
		}
		for _, f := range res.Failures {
			log.Warnw("salary not generated", "contract_id", f.ContractID, "staff", f.StaffName, "err", f.Error)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid PAYROLL_CRON %q", spec)
	}

	c.Start()
	log.Infow("payroll scheduler started", "spec", spec)
	return c, nil
}
