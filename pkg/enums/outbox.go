package enums

// OutboxEventType names a domain event written through the outbox.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order.created"
	EventOrderCancelled OutboxEventType = "order.cancelled"
	EventOrderUpdated   OutboxEventType = "order.updated"
	EventStockLow       OutboxEventType = "stock.low"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateStockItem OutboxAggregateType = "stock_item"
)
