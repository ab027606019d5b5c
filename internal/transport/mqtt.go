// Package transport connects the flight controller to its MQTT
// surroundings: the inbound pose and goal feeds, the takeoff/land
// triggers, and the outbound velocity command stream.
package transport

import (
	"encoding/json"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/flightcore/internal/config"
	"github.com/san-kum/flightcore/internal/flight"
	"github.com/san-kum/flightcore/internal/geom"
)

// Client wraps an MQTT connection with the topic layout from the
// configuration.
type Client struct {
	mqtt mqtt.Client
	cfg  *config.Config
}

// Connect dials the configured broker. The clientID suffix keeps the
// controller, the CLI verbs and the monitor distinguishable on the
// broker.
func Connect(cfg *config.Config, suffix string) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-" + suffix)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("transport: connected to %s", cfg.Broker)
	return &Client{mqtt: client, cfg: cfg}, nil
}

// Disconnect flushes and closes the connection.
func (c *Client) Disconnect() {
	c.mqtt.Disconnect(250)
}

// BindController subscribes the controller to the pose feed on the
// configured frame, the goal feed and the two trigger topics. Every
// delivery replaces the controller's latest snapshot wholesale.
func (c *Client) BindController(ctrl *flight.Controller) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{c.cfg.Frame, func(_ mqtt.Client, msg mqtt.Message) {
			handlePose(ctrl, msg.Payload())
		}},
		{c.cfg.Topics.Goal, func(_ mqtt.Client, msg mqtt.Message) {
			handleGoal(ctrl, msg.Payload())
		}},
		{c.cfg.Topics.Takeoff, func(_ mqtt.Client, _ mqtt.Message) {
			ctrl.RequestTakeoff()
		}},
		{c.cfg.Topics.Land, func(_ mqtt.Client, _ mqtt.Message) {
			ctrl.RequestLand()
		}},
	}

	for _, s := range subs {
		token := c.mqtt.Subscribe(s.topic, 0, s.handler)
		if token.Wait(); token.Error() != nil {
			return token.Error()
		}
		log.Printf("transport: subscribed to %s", s.topic)
	}
	return nil
}

func handlePose(ctrl *flight.Controller, payload []byte) {
	var p geom.Pose
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("transport: pose unmarshal error: %v", err)
		return
	}
	ctrl.UpdatePose(p)
}

func handleGoal(ctrl *flight.Controller, payload []byte) {
	var p geom.Pose
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("transport: goal unmarshal error: %v", err)
		return
	}
	ctrl.UpdateGoal(p)
}

// Publish sends one velocity command. QoS 0, fire and forget: the tick
// loop must not block on broker acknowledgements.
func (c *Client) Publish(cmd flight.Command) error {
	payload, err := marshalCommand(cmd)
	if err != nil {
		return err
	}
	c.mqtt.Publish(c.cfg.Topics.Command, 0, false, payload)
	return nil
}

func marshalCommand(cmd flight.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

// PublishGoal sends a goal pose, retained so a controller that starts
// late still sees the latest goal.
func (c *Client) PublishGoal(p geom.Pose) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	token := c.mqtt.Publish(c.cfg.Topics.Goal, 0, true, payload)
	token.Wait()
	return token.Error()
}

// PublishTakeoff fires the payload-free takeoff trigger.
func (c *Client) PublishTakeoff() error {
	token := c.mqtt.Publish(c.cfg.Topics.Takeoff, 0, false, []byte{})
	token.Wait()
	return token.Error()
}

// PublishLand fires the payload-free land trigger.
func (c *Client) PublishLand() error {
	token := c.mqtt.Publish(c.cfg.Topics.Land, 0, false, []byte{})
	token.Wait()
	return token.Error()
}

// SubscribePose delivers decoded poses from the configured frame topic,
// for observers such as the monitor.
func (c *Client) SubscribePose(fn func(geom.Pose)) error {
	token := c.mqtt.Subscribe(c.cfg.Frame, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p geom.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("transport: pose unmarshal error: %v", err)
			return
		}
		fn(p)
	})
	if token.Wait(); token.Error() != nil {
		return token.Error()
	}
	return nil
}

// SubscribeCommand delivers decoded velocity commands.
func (c *Client) SubscribeCommand(fn func(flight.Command)) error {
	token := c.mqtt.Subscribe(c.cfg.Topics.Command, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var cmd flight.Command
		if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
			log.Printf("transport: command unmarshal error: %v", err)
			return
		}
		fn(cmd)
	})
	if token.Wait(); token.Error() != nil {
		return token.Error()
	}
	return nil
}
