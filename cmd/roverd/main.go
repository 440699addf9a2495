package main

import (
	"flag"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/rover/pkg/framework"
	"github.com/robotalks/rover/pkg/console"
	"github.com/robotalks/rover/pkg/env"
	"github.com/robotalks/rover/pkg/motor"
	"github.com/robotalks/rover/pkg/motor/fake"
	"github.com/robotalks/rover/pkg/motor/pwm"
	"github.com/robotalks/rover/pkg/netcmd"
	"github.com/robotalks/rover/pkg/status"
	"github.com/robotalks/rover/pkg/status/mqtt"
	"github.com/robotalks/rover/pkg/supervisor"
	"github.com/robotalks/rover/pkg/sysctl"
)

var (
	motorBackend = "pwm"
)

func init() {
	motor.SetupFlags()
	pwm.SetupFlags()
	netcmd.SetupFlags()
	console.SetupFlags()
	sysctl.SetupFlags()
	env.SetupFlags()
	flag.StringVar(&motorBackend, "motor-backend", motorBackend, "Motor outputs: pwm or fake.")
}

func openOutputs() (outs [motor.NumChannels]motor.Output, err error) {
	switch motorBackend {
	case "pwm":
		return pwm.Default().Open()
	case "fake":
		glog.Warning("using fake motor outputs")
		return fake.NewRecorder().Outputs(), nil
	}
	glog.Fatalf("unknown motor backend %q", motorBackend)
	return
}

func localAddr(conf *netcmd.Config) string {
	if conf.LocalAddr != "" {
		return conf.LocalAddr
	}
	addr, err := env.LocalIPv4(conf.Coordinator)
	if err != nil {
		glog.Warningf("local address: %v", err)
		host, _, _ := net.SplitHostPort(conf.Coordinator)
		return host
	}
	return addr
}

func main() {
	flag.Parse()
	defer glog.Flush()

	outs, err := openOutputs()
	if err != nil {
		glog.Fatalf("open motor outputs: %v", err)
	}
	dt := motor.NewDrivetrain(*motor.Default(), outs)
	if err := dt.Stop(); err != nil {
		glog.Fatalf("stop motors: %v", err)
	}
	indicators := status.Indicators{status.LogIndicator{}}

	runner := fx.NewRunner().HandleSignals()

	netConf := netcmd.Default()
	client := netcmd.NewClient(*netConf, dt)

	var runnables []fx.Runnable
	if url := env.Default().MQTTBrokerURL; url != "" {
		reporter, err := mqtt.NewReporter(url, env.Default().NodeMeta(localAddr(netConf)), dt)
		if err != nil {
			glog.Fatalf("telemetry: %v", err)
		}
		indicators.Add(reporter)
		client.Election.OnChange(reporter.RoleChanged)
		runnables = append(runnables, reporter)
	}
	dt.Indicator = indicators

	transports, err := console.Default().Open()
	if err != nil {
		glog.Fatalf("console: %v", err)
	}
	defer transports.Close()

	restarter := sysctl.Default().NewRestarter()
	restarter.BeforeExec = func() {
		if err := dt.Stop(); err != nil {
			glog.Errorf("stop motors: %v", err)
		}
		transports.Close()
	}

	mux := console.NewMux(transports.Channels...)
	con := console.New(mux, &console.Commands{
		Drivetrain:  dt,
		Restarter:   restarter,
		Thermometer: sysctl.Default().NewThermometer(),
	})
	con.OnQuit = runner.Cancel

	sv := &supervisor.Supervisor{
		Motors:    dt,
		Restarter: restarter,
		Attended:  mux.Attended,
		Console:   mux,
	}

	runnables = append(runnables,
		sv.Runnable(client.Name(), client),
		sv.Runnable(con.Name(), con))
	for _, server := range transports.Servers {
		runnables = append(runnables, sv.Runnable(fx.NameOf(server, "console-server"), server))
	}

	err = runner.Go(runnables...).Wait()
	if stopErr := dt.Stop(); stopErr != nil {
		glog.Errorf("stop motors: %v", stopErr)
	}
	if err != nil {
		glog.Fatal(err)
	}
}
