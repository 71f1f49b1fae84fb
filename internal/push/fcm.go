// README: Push delivery via Firebase Cloud Messaging. Nil client disables push.
package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"rumo/internal/logger"
	"rumo/internal/types"
)

// FCMNotifier sends ride notifications to driver and passenger devices.
// With a nil client every send is a silent no-op, so an unconfigured
// deployment degrades gracefully instead of failing rides.
type FCMNotifier struct {
	client *messaging.Client
	log    logger.ILogger
}

func NewFCMNotifier(client *messaging.Client, log logger.ILogger) *FCMNotifier {
	return &FCMNotifier{client: client, log: log}
}

func (n *FCMNotifier) NotifyRideRequested(ctx context.Context, tokens []string, rideID types.ID, pickupAddress, destinationAddress, formattedPrice string) {
	if pickupAddress == "" {
		pickupAddress = "Origem"
	}
	if destinationAddress == "" {
		destinationAddress = "Destino"
	}
	body := fmt.Sprintf("%s → %s", pickupAddress, destinationAddress)
	if formattedPrice != "" {
		body += " • " + formattedPrice
	}
	n.send(ctx, tokens, &messaging.Notification{
		Title: "Nova corrida disponível",
		Body:  body,
	}, map[string]string{
		"type":   "new_ride",
		"rideId": string(rideID),
	}, "rumo_new_ride")
}

func (n *FCMNotifier) NotifyRideAccepted(ctx context.Context, tokens []string, rideID types.ID, driverName, vehiclePlate string) {
	body := "Um motorista aceitou sua corrida"
	if driverName != "" {
		body = "Motorista " + driverName
		if vehiclePlate != "" {
			body += " • " + vehiclePlate
		}
		body += " aceitou sua corrida"
	}
	n.send(ctx, tokens, &messaging.Notification{
		Title: "Motorista a caminho!",
		Body:  body,
	}, map[string]string{
		"type":   "driver_accepted",
		"rideId": string(rideID),
	}, "rumo_driver_accepted")
}

func (n *FCMNotifier) send(ctx context.Context, tokens []string, note *messaging.Notification, data map[string]string, channelID string) {
	if n.client == nil || len(tokens) == 0 {
		return
	}
	msg := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: note,
		Data:         data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelID,
				Sound:     "default",
			},
		},
	}
	res, err := n.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		n.log.Error("fcm send failed", logger.Error(err))
		return
	}
	if res.FailureCount > 0 {
		n.log.Warning("fcm partial delivery",
			logger.Int("ok", res.SuccessCount),
			logger.Int("failed", res.FailureCount),
		)
	}
}
