// Command navsdk-demo connects to a navigation controller, requests its
// runtime status, runs a one-point navigation task, queries its status once,
// and cancels it if it is still executing — a runnable walkthrough of the
// public SDK surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdklog "github.com/tailu123/x30-nav-sdk/internal/log"
	"github.com/tailu123/x30-nav-sdk/pkg/navsdk"
)

func main() {
	host := flag.String("host", "127.0.0.1", "Navigation controller host")
	port := flag.Int("port", 2201, "Navigation controller port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		sdklog.Init("debug")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("🧭 x30 navigation SDK demo")
	fmt.Printf("   Target: %s:%d\n", *host, *port)

	client := navsdk.NewDefault()
	if !client.Connect(*host, *port) {
		log.Fatalf("failed to connect to %s:%d", *host, *port)
	}
	defer client.Disconnect()
	fmt.Println("✅ connected")

	status := client.RequestRuntimeStatus()
	fmt.Printf("   status: code=%v electricity=%d motion_state=%d\n", status.Code, status.Electricity, status.MotionState)

	navDone := make(chan navsdk.NavigationResult, 1)
	client.StartNavTask([]navsdk.NavigationPoint{
		{MapID: 1, Value: 1, PosX: 1.0, PosY: 1.0, Gait: 1, Speed: 1},
	}, func(result navsdk.NavigationResult) {
		navDone <- result
	})
	fmt.Println("🚶 navigation task submitted")

	select {
	case result := <-navDone:
		fmt.Printf("   nav result: code=%v error_status=%d\n", result.Code, result.ErrorStatus)
	case <-sigChan:
		fmt.Println("\n👋 interrupted before the navigation task completed")
		return
	case <-time.After(30 * time.Second):
		fmt.Println("⚠️  navigation task did not complete within 30s")
	}

	taskStatus := client.QueryNavTaskStatus()
	fmt.Printf("   task status: code=%v value=%d\n", taskStatus.Code, taskStatus.Value)

	if taskStatus.Code == navsdk.TaskExecuting {
		if client.CancelNavTask() {
			fmt.Println("🛑 task cancelled")
		}
	}

	fmt.Println("👋 done")
}
