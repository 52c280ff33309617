// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package broadcast pushes voting events to connected browsers.

# Hub

Hub holds the live connections. Publish sends a payload to each of them;
a connection whose send fails is dropped without affecting the others,
and the error never reaches the caller.

Connections may be registered with a scope. A scoped connection receives
events for its scope and events with no scope; an unscoped connection
receives everything.

# Websocket

ServeWS serves GET /ws?scope=. The first message is {"type":"connected"};
a client {"type":"ping"} is answered with {"type":"pong"}.

# Ingress

IngressHandler serves POST /broadcast. Any JSON object is fanned out
verbatim, routed by its optional "scope" field.

# Publishers

The voting components emit through a Publisher:

  - HubPublisher: a hub in the same process
  - HTTPPublisher: a remote hub's POST /broadcast
  - NATSPublisher, KafkaPublisher: a broker, fed into hubs by
    NATSRelay and KafkaRelay
  - NoopPublisher: nowhere
*/
package broadcast
