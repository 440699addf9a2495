package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	fx "github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/status"
	"github.com/robotalks/rover/pkg/status/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/rover/"
)

func init() {
	if val := os.Getenv("ROVER_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func describe(topic string, payload []byte) string {
	if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
		if len(payload) == 0 {
			return fmt.Sprintf("%s: gone", topic)
		}
		return fmt.Sprintf("%s: %s", topic, string(payload))
	}
	if !strings.HasSuffix(topic, "/"+mqtt.TopicStatus) {
		return fmt.Sprintf("%s: %d bytes", topic, len(payload))
	}
	report, err := status.DecodeReport(payload)
	if err != nil {
		return fmt.Sprintf("%s: bad report: %v", topic, err)
	}
	return fmt.Sprintf("%s: [%s] %s", topic, report.Role, report.String())
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	q.Sub("#", func(topic string, payload []byte) {
		log.Println(describe(topic, payload))
	})

	runner := fx.NewRunner().HandleSignals()
	if err := q.Connect(runner.Context); err != nil {
		log.Fatalln(err)
	}
	<-runner.Context.Done()
	q.Close()
}
