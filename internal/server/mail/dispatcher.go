package mail

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/medibook/internal/logging"
)

const defaultSendTimeout = 30 * time.Second

// Dispatcher sends messages in background goroutines. Failures are logged
// and never reach the caller.
type Dispatcher struct {
	mailer  Mailer
	log     logging.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(mailer Mailer, log logging.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:  mailer,
		log:     log.With("module", "mail"),
		timeout: defaultSendTimeout,
	}
}

// Dispatch queues msg and returns immediately. The send is detached from
// the request context so a finished request does not cancel it.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.mailer.Send(sendCtx, msg); err != nil {
			d.log.Error(sendCtx, "mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
			return
		}
		d.log.Debug(sendCtx, "mail delivered", "to", msg.To, "subject", msg.Subject)
	}()
}

// Wait blocks until every dispatched message has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
