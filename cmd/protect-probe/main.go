// protect-probe connects to one controller, prints the camera roster
// from the bootstrap, and logs notifications for 30 seconds. A
// dev-only smoke test, not a CLI surface (spec.md §1 excludes the CLI
// from the core).
package main

import (
	"context"
	"log"
	"time"

	protect "github.com/lumenvue/protectclient"
	"github.com/lumenvue/protectclient/internal/config"
	"github.com/lumenvue/protectclient/internal/notify"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client, err := protect.New(cfg)
	if err != nil {
		log.Fatalf("new client: %v", err)
	}

	sub := client.Subscribe(func(msg notify.Message) {
		log.Printf("[probe] %s %s/%s changed=%v", msg.Action, msg.ModelKey, msg.ObjectID, msg.ChangedFields)
	})
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer client.Close()

	b := client.Bootstrap()
	for _, id := range b.CameraIDs() {
		cam := b.Camera(id)
		if cam == nil {
			continue
		}
		log.Printf("[probe] camera %s: %s", id, cam.Name)
	}

	<-ctx.Done()
}
