// Package client exposes the two request shapes a caller actually needs:
// send a payload to a storage node, or send it to a server reachable
// through the mixnet. Everything else (path selection, envelope
// construction, transport) is assembled here from pkg/onion,
// pkg/pathselect and pkg/transport.
package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/msgmaxim/onionreq/internal/logging"
	"github.com/msgmaxim/onionreq/internal/metrics"
	"github.com/msgmaxim/onionreq/pkg/onion"
	"github.com/msgmaxim/onionreq/pkg/pathselect"
	"github.com/msgmaxim/onionreq/pkg/transport"
)

// Client builds onion paths, wraps a payload in a four-layer envelope and
// dispatches it to the path's guard node.
type Client struct {
	selector *pathselect.Selector
	guard    transport.Transport
	logger   *logging.Logger
	metrics  *metrics.PrometheusMetrics
}

// New builds a Client over the given path selector and guard transport.
func New(selector *pathselect.Selector, guard transport.Transport, logger *logging.Logger, m *metrics.PrometheusMetrics) *Client {
	return &Client{selector: selector, guard: guard, logger: logger, metrics: m}
}

// SendToNode onion-routes payload to dest, a storage swarm member, through
// a freshly sampled three-hop path.
func (c *Client) SendToNode(ctx context.Context, payload []byte, dest onion.ServiceNode) (string, error) {
	return c.send(ctx, payload, onion.NewNodeHop(dest))
}

// SendToServer onion-routes payload to an open group or file server
// reachable through the mixnet.
func (c *Client) SendToServer(ctx context.Context, payload []byte, server onion.ServerEndpointV2) (string, error) {
	return c.send(ctx, payload, onion.NewServerV2Hop(server))
}

func (c *Client) send(ctx context.Context, payload []byte, target onion.NextHop) (string, error) {
	requestID := uuid.New()

	relays, err := c.selector.RandomPath()
	if err != nil {
		return "", &onion.RequestError{Message: "sampling onion path", Cause: err}
	}
	path := onion.OnionPath{
		Node1:  onion.NewNodeHop(relays[0]),
		Node2:  onion.NewNodeHop(relays[1]),
		Node3:  onion.NewNodeHop(relays[2]),
		Target: target,
	}

	log := c.logger.WithRequestID(requestID).WithPath(path)
	log.Debug().Msg("built onion path")

	envelope, sessionKey, err := onion.Build(path, payload)
	if err != nil {
		return "", &onion.RequestError{Message: "building onion envelope", Path: path, Cause: err}
	}

	guard := relays[0]
	req := transport.Request{
		URL:    fmt.Sprintf("https://%s:%d/onion_req/v2", guard.PublicIP, guard.StoragePort),
		Method: "POST",
		Body:   envelope,
	}

	rawBody, err := c.guard.Send(ctx, req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(string(onion.KindTransport))
		}
		log.Warn().Err(err).Msg("guard request failed")
		return "", &onion.RequestError{Message: "sending to guard", Path: path, Cause: err}
	}

	body, err := onion.DecryptResponse(rawBody, sessionKey)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError(string(onion.KindCrypto))
		}
		return "", &onion.RequestError{Message: "decrypting guard response", Path: path, Cause: err}
	}

	log.Debug().Msg("onion request succeeded")
	return body, nil
}
