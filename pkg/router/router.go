package router

import (
	"context"
	"errors"
	"log/slog"

	"captionbot/pkg/bus"
	"captionbot/pkg/channel"
	"captionbot/pkg/wait"
)

// Decision says what the intercept check decided for one inbound message.
type Decision int

const (
	// Continue lets the message flow into normal route matching.
	Continue Decision = iota
	// Suppressed means a pending wait consumed the message; no route sees it.
	Suppressed
)

// Handler processes one routed inbound message.
type Handler func(ctx context.Context, msg bus.InboundMessage, rsp channel.Responder) error

// Route pairs a match predicate with its handler. Routes are checked in
// registration order; the first match wins.
type Route struct {
	Name   string
	Match  func(bus.InboundMessage) bool
	Handle Handler
}

// Dispatcher is the single choke point between the message source and the
// route table. Every inbound message is offered to the wait registry before
// any route matching, so a suspended handler always sees the next message
// from its sender even when that message would match another route.
type Dispatcher struct {
	registry *wait.Registry
	routes   []Route
	log      *slog.Logger
}

func NewDispatcher(registry *wait.Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		registry: registry,
		log:      log.With("component", "router"),
	}
}

// AddRoute appends one route to the table. Not safe for concurrent use with
// Dispatch; register all routes before the adapter starts.
func (d *Dispatcher) AddRoute(route Route) {
	d.routes = append(d.routes, route)
}

// Dispatch runs the full decision for one message: intercept first, then
// first-match routing. Interception happens on the caller's goroutine and is
// bounded-time; routed handlers run on their own goroutine because they may
// suspend waiting for a follow-up message, and the source loop must keep
// flowing while they do.
func (d *Dispatcher) Dispatch(ctx context.Context, msg bus.InboundMessage, rsp channel.Responder) {
	if d.Intercept(msg) == Suppressed {
		return
	}

	go d.Route(ctx, msg, rsp)
}

// Intercept offers msg to a pending wait for its sender. It never blocks.
func (d *Dispatcher) Intercept(msg bus.InboundMessage) Decision {
	if d.registry.TryDeliver(msg.SenderID, msg) {
		d.log.Debug("Message consumed by pending wait", "sender_id", msg.SenderID)
		return Suppressed
	}

	return Continue
}

// Route dispatches msg to the first matching route, if any.
func (d *Dispatcher) Route(ctx context.Context, msg bus.InboundMessage, rsp channel.Responder) {
	for _, route := range d.routes {
		if !route.Match(msg) {
			continue
		}

		if err := route.Handle(ctx, msg, rsp); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("Route handler failed", "route", route.Name, "sender_id", msg.SenderID, "error", err)
		}
		return
	}

	d.log.Debug("No route matched", "sender_id", msg.SenderID, "chat_id", msg.ChatID)
}
