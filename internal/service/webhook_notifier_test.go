package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/servisdesk/servisdesk/internal/config"
	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/events"
	"github.com/servisdesk/servisdesk/internal/service"
)

type receivedHook struct {
	ContentType string
	Body        map[string]any
}

var _ = Describe("WebhookNotifier", func() {
	var (
		ctx      context.Context
		mu       sync.Mutex
		received []receivedHook
		status   int
		server   *httptest.Server
		notifier *service.WebhookNotifier
		event    events.Event
	)

	BeforeEach(func() {
		ctx = context.Background()
		received = nil
		status = http.StatusNoContent
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			raw, err := io.ReadAll(r.Body)
			Expect(err).NotTo(HaveOccurred())
			var body map[string]any
			Expect(json.Unmarshal(raw, &body)).To(Succeed())

			mu.Lock()
			received = append(received, receivedHook{ContentType: r.Header.Get("Content-Type"), Body: body})
			code := status
			mu.Unlock()
			w.WriteHeader(code)
		}))
		DeferCleanup(server.Close)

		// httptest listens on loopback, which the production client refuses.
		notifier = service.NewWebhookNotifier(&http.Client{Timeout: 2 * time.Second}, zap.NewNop())
		event = events.NewEvent(events.EventTicketCreated, 3, 42, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), events.TicketCreatedPayload{
			Title:    "Printer jammed",
			Priority: domain.TicketPriorityHigh,
		})
	})

	hooks := func() []receivedHook {
		mu.Lock()
		defer mu.Unlock()
		return append([]receivedHook(nil), received...)
	}

	It("posts the event as JSON", func() {
		Expect(notifier.Notify(ctx, "webhook", server.URL, "ticket.created", event)).To(Succeed())

		Expect(hooks()).To(HaveLen(1))
		hook := hooks()[0]
		Expect(hook.ContentType).To(Equal("application/json"))
		Expect(hook.Body).To(HaveKeyWithValue("subject", "ticket.created"))
		Expect(hook.Body).To(HaveKeyWithValue("event", And(
			HaveKeyWithValue("id", event.ID),
			HaveKeyWithValue("type", string(events.EventTicketCreated)),
			HaveKeyWithValue("subject_id", BeNumerically("==", 42)),
			HaveKeyWithValue("payload", HaveKeyWithValue("title", "Printer jammed")),
		)))
	})

	It("reports a non-2xx reply as an error", func() {
		mu.Lock()
		status = http.StatusBadGateway
		mu.Unlock()

		err := notifier.Notify(ctx, "webhook", server.URL, "ticket.created", event)
		Expect(err).To(MatchError(ContainSubstring("status 502")))
	})

	It("reports an unreachable endpoint as an error", func() {
		url := server.URL
		server.Close()
		Expect(notifier.Notify(ctx, "webhook", url, "ticket.created", event)).To(HaveOccurred())
	})

	It("only logs the email channel", func() {
		Expect(notifier.Notify(ctx, "email", "alice@example.com", "Ticket assigned to you", event)).To(Succeed())
		Expect(hooks()).To(BeEmpty())
	})

	It("delivers ticket events end to end through the notification service", func() {
		f := newFixture()
		dispatcher := events.NewInMemoryDispatcher(zap.NewNop(), nil)
		service.NewNotificationService(dispatcher, f.store.Identities(), f.store.Tickets(), notifier, zap.NewNop(), config.NotificationConfig{
			WebhookURL: server.URL,
		}).RegisterHandlers()
		tickets := service.NewTicketService(service.TicketDependencies{
			TicketRepo:   f.store.Tickets(),
			CommentRepo:  f.store.Comments(),
			IdentityRepo: f.store.Identities(),
			Transactor:   f.store.Transactor(),
			Dispatcher:   dispatcher,
		})
		member := f.identity("alice", false)

		created, err := tickets.CreateTicket(ctx, member, service.TicketCreateInput{
			Title:       "Printer jammed",
			Description: "The printer on floor two is jammed again.",
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(hooks()).To(HaveLen(1))
		Expect(hooks()[0].Body).To(HaveKeyWithValue("event", HaveKeyWithValue("subject_id", BeNumerically("==", created.ID))))
	})
})
