package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Mjnllee/kidfromanila/internal/domain"
	"github.com/Mjnllee/kidfromanila/internal/store"
	"github.com/cucumber/godog"
)

type workflowTestContext struct {
	gw       *store.MemoryStore
	pub      *mockPublisher
	workflow *Workflow
	err      error
}

func (c *workflowTestContext) reset() {
	c.gw = store.NewMemoryStore()
	c.pub = &mockPublisher{}
	c.workflow = NewWorkflow(c.gw, c.pub, nil)
	c.err = nil
}

func (c *workflowTestContext) anOrderPlacedBy(orderID, userID string) error {
	return c.writeOrder(orderID, userID, domain.OrderStatusPending)
}

func (c *workflowTestContext) orderIs(orderID, status string) error {
	return c.writeOrder(orderID, "user123", domain.OrderStatus(status))
}

func (c *workflowTestContext) writeOrder(orderID, userID string, status domain.OrderStatus) error {
	doc, err := store.Encode(domain.Order{
		ID:            orderID,
		UserID:        userID,
		Items:         []domain.CartItem{{ProductID: "p1", Size: "205/55R16", Price: 100, Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
		Total:         100,
		Status:        status,
	})
	if err != nil {
		return err
	}
	return c.gw.SetDocument(context.Background(), store.OrdersCollection, orderID, doc, false)
}

func (c *workflowTestContext) staffMoveOrderTo(orderID, status string) error {
	_, c.err = c.workflow.Transition(context.Background(), orderID, domain.OrderStatus(status))
	return nil
}

func (c *workflowTestContext) orderHasStatus(orderID, status string) error {
	o, err := c.workflow.Get(context.Background(), orderID)
	if err != nil {
		return err
	}
	if string(o.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, o.Status)
	}
	return nil
}

func (c *workflowTestContext) theTransitionIsRejected() error {
	if c.err == nil {
		return errors.New("expected transition to fail but it succeeded")
	}
	if !errors.Is(c.err, domain.ErrInvalidTransition) {
		return fmt.Errorf("expected invalid transition, got %v", c.err)
	}
	return nil
}

func (c *workflowTestContext) statusChangeEventsWerePublished(n int) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %v", c.err)
	}
	if len(c.pub.events) != n {
		return fmt.Errorf("expected %d events, got %d", n, len(c.pub.events))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &workflowTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an order "([^"]*)" placed by "([^"]*)"$`, tc.anOrderPlacedBy)
	ctx.Step(`^order "([^"]*)" is "([^"]*)"$`, tc.orderIs)

	// When steps
	ctx.Step(`^staff move order "([^"]*)" to "([^"]*)"$`, tc.staffMoveOrderTo)

	// Then steps
	ctx.Step(`^order "([^"]*)" has status "([^"]*)"$`, tc.orderHasStatus)
	ctx.Step(`^the transition is rejected$`, tc.theTransitionIsRejected)
	ctx.Step(`^(\d+) status change events were published$`, tc.statusChangeEventsWerePublished)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/order_workflow.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
