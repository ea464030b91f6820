// Command autopilotd runs the vessel autopilot core: mission sequencing,
// route/loiter/dive/emergency-stop execution, and COLREG collision
// avoidance, driven off a NATS message bus.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/asgard/vessel-autopilot/internal/ais"
	"github.com/asgard/vessel-autopilot/internal/autopilot"
	"github.com/asgard/vessel-autopilot/internal/colreg"
	"github.com/asgard/vessel-autopilot/internal/config"
	"github.com/asgard/vessel-autopilot/internal/mission"
	"github.com/asgard/vessel-autopilot/internal/obs"
	"github.com/asgard/vessel-autopilot/internal/position"
	"github.com/asgard/vessel-autopilot/internal/telemetry"
	"github.com/asgard/vessel-autopilot/internal/transport"
	"github.com/asgard/vessel-autopilot/internal/wire"
)

var (
	natsURL       = flag.String("nats-url", "nats://127.0.0.1:4222", "NATS server URL for the command/telemetry bus")
	wsAddr        = flag.String("ws-addr", ":8088", "bind address for the operator telemetry websocket")
	logLevel      = flag.String("log-level", "info", "log level: debug, info, warn, error")
	startupGraceS = flag.Int("startup-grace-s", 60, "seconds to wait for an operator subscriber before giving up")
)

const (
	subjSensors             = "vessel.sensors"
	subjAIS                 = "vessel.ais"
	subjRoute               = "vessel.route"
	subjLoiterPosition      = "vessel.loiter_position"
	subjDiveProcedure       = "vessel.dive_procedure"
	subjProcedureActivation = "vessel.procedure_activation"
	subjMission             = "vessel.mission"
	subjMissionCommand      = "vessel.mission_command"
	subjAutopilotCommand    = "vessel.autopilot_command"

	subjActuatorCommand = "vessel.actuator_command"
	subjAPReport        = "vessel.ap_report"
	subjMissionReport   = "vessel.mission_report"
	subjColregStatus    = "vessel.colreg_status"
)

// daemon bundles the control loop's stores, controllers and transport.
type daemon struct {
	cfg config.Config
	log *logrus.Logger

	bus     *transport.Bus
	wsfeed  *telemetry.Feed
	metrics *obs.Metrics

	estimator    *position.Estimator
	aisTracker   *ais.Tracker
	colregEngine *colreg.Engine
	ap           *autopilot.Controller
	mc           *mission.Controller

	sensorInbox     transport.LatestInbox[wire.SensorReportMsg]
	routeInbox      transport.QueueInbox[wire.RouteMsg]
	loiterInbox     transport.QueueInbox[wire.LoiterPositionMsg]
	diveInbox       transport.QueueInbox[wire.DiveProcedureMsg]
	activationInbox transport.QueueInbox[wire.ProcedureActivationMsg]
	missionInbox    transport.LatestInbox[wire.MissionMsg]
	missionCmdInbox transport.QueueInbox[wire.MissionCommandMsg]
	apCmdInbox      transport.QueueInbox[wire.AutopilotCommandMsg]
	aisInbox        transport.QueueInbox[wire.AISBatchMsg]

	lastSensor wire.SensorReportMsg
}

func main() {
	flag.Parse()

	log := obs.NewLogger(*logLevel)
	obs.Logger = log

	d := newDaemon(log)
	if err := d.Initialize(); err != nil {
		log.WithError(err).Fatal("autopilotd: initialization failed")
	}

	if err := d.Start(); err != nil {
		log.WithError(err).Error("autopilotd: startup failed")
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	exitCode := d.Run(sig)
	d.Shutdown()
	os.Exit(exitCode)
}

func newDaemon(log *logrus.Logger) *daemon {
	cfg := config.Default()
	return &daemon{
		cfg:        cfg,
		log:        log,
		estimator:  position.New(),
		aisTracker: ais.NewTracker(),
		metrics:    obs.GetMetrics(),
	}
}

// Initialize wires the controllers and transport together but does not yet
// connect to the bus.
func (d *daemon) Initialize() error {
	d.colregEngine = colreg.NewEngine(d.cfg)
	d.colregEngine.SetLogger(d.log)

	d.ap = autopilot.New(d.cfg, d.estimator, d.colregEngine)
	d.ap.SetLogger(d.log)

	d.mc = mission.New(d.cfg, d.ap)
	d.mc.SetLogger(d.log)

	d.aisTracker.SetLogger(d.log)

	d.bus = transport.NewBus(transport.Config{
		URL:           *natsURL,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}, d.log)

	d.wsfeed = telemetry.NewFeed(d.log)
	return nil
}

// Start connects to the bus, subscribes every inbound topic, starts the
// telemetry websocket, and blocks (up to the startup grace period) for an
// operator/C2 subscriber on the autopilot-command channel.
func (d *daemon) Start() error {
	if err := d.bus.Connect(); err != nil {
		return err
	}

	transport.SubscribeJSON(d.bus, subjSensors, d.sensorInbox.Put)
	transport.SubscribeJSON(d.bus, subjAIS, d.aisInbox.Put)
	transport.SubscribeJSON(d.bus, subjRoute, d.routeInbox.Put)
	transport.SubscribeJSON(d.bus, subjLoiterPosition, d.loiterInbox.Put)
	transport.SubscribeJSON(d.bus, subjDiveProcedure, d.diveInbox.Put)
	transport.SubscribeJSON(d.bus, subjProcedureActivation, d.activationInbox.Put)
	transport.SubscribeJSON(d.bus, subjMission, d.missionInbox.Put)
	transport.SubscribeJSON(d.bus, subjMissionCommand, d.missionCmdInbox.Put)
	transport.SubscribeJSON(d.bus, subjAutopilotCommand, d.apCmdInbox.Put)

	if err := d.wsfeed.Listen(*wsAddr); err != nil {
		return err
	}

	grace := time.Duration(*startupGraceS) * time.Second
	if !d.bus.WaitForSubscriber(subjAutopilotCommand, grace, 500*time.Millisecond) {
		return errStartupTimeout
	}
	return nil
}

// errStartupTimeout is returned by Start when no operator subscriber
// appears within the startup grace period.
var errStartupTimeout = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string { return "autopilotd: no operator subscriber within startup grace period" }

// Run drives the control loop at cfg.Tick cadence until sig fires or the
// bus disconnects, returning the process exit code.
func (d *daemon) Run(sig <-chan os.Signal) int {
	ticker := time.NewTicker(d.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			return 0
		case now := <-ticker.C:
			if !d.bus.IsConnected() {
				d.log.Warn("autopilotd: bus disconnected, shutting down")
				return 0
			}
			d.tick(now)
		}
	}
}

// tick runs exactly one control-loop iteration: ingest, mission.run,
// autopilot.execute, publish.
func (d *daemon) tick(now time.Time) {
	timer := time.Now()
	defer func() { d.metrics.TickDuration.Observe(time.Since(timer).Seconds()) }()
	d.metrics.TicksTotal.Inc()

	d.ingest(now)

	d.mc.Run(now)
	cmd, ok := d.ap.Execute(now, d.currentSensor(), d.aisTracker.Snapshot(now))

	if ok {
		d.bus.PublishJSON(subjActuatorCommand, wire.ActuatorCommandFromDomain(cmd))
		d.wsfeed.Broadcast("actuator", wire.ActuatorCommandFromDomain(cmd))
		d.metrics.ActuatorPublishes.Inc()
	}

	if d.ap.ReportAvailable() {
		rep := wire.APReportFromDomain(d.ap.Report())
		d.bus.PublishJSON(subjAPReport, rep)
		d.wsfeed.Broadcast("ap_report", rep)
	}
	if d.mc.ReportAvailable() {
		rep := wire.MissionReportFromDomain(d.mc.Report())
		d.bus.PublishJSON(subjMissionReport, rep)
		d.wsfeed.Broadcast("mission_report", rep)
	}
	if d.colregEngine.ReportAvailable() {
		rep := wire.ColregStatusFromDomain(d.colregEngine.Report())
		d.bus.PublishJSON(subjColregStatus, rep)
		d.wsfeed.Broadcast("colreg_status", rep)
	}

	d.metrics.AisTargetsTracked.Set(float64(d.aisTracker.Len()))
}

func (d *daemon) currentSensor() autopilot.SensorReport {
	return d.lastSensor.ToDomain()
}

// ingest drains every inbox and folds updates into the relevant store.
func (d *daemon) ingest(now time.Time) {
	if s, ok := d.sensorInbox.Drain(); ok {
		d.lastSensor = s
	}

	for _, f := range d.aisInbox.Drain() {
		fixes := make([]ais.Fix, len(f.Targets))
		for i, t := range f.Targets {
			fixes[i] = t.ToDomain()
		}
		d.aisTracker.Update(now, fixes)
	}

	for _, r := range d.routeInbox.Drain() {
		if err := d.ap.StoreRoute(r.ToDomain()); err != nil {
			d.log.WithError(err).Warn("autopilotd: rejected malformed route")
		}
	}
	for _, lp := range d.loiterInbox.Drain() {
		d.ap.StoreLoiterPosition(lp.ToDomain())
	}
	for _, dp := range d.diveInbox.Drain() {
		d.ap.StoreDiveProcedure(dp.ToDomain())
	}
	for _, act := range d.activationInbox.Drain() {
		switch act.Kind {
		case wire.ProcedureRoute:
			d.ap.ActivateRoute(act.ID)
		case wire.ProcedureLoiter:
			d.ap.ActivateLoiterPosition(act.ID)
		case wire.ProcedureDive:
			d.ap.ActivateDiveProcedure(act.ID)
		}
	}

	if m, ok := d.missionInbox.Drain(); ok {
		d.mc.SetMission(m.ToDomain())
	}

	apCmds := d.apCmdInbox.Drain()
	if len(apCmds) > 0 {
		// Manual AP control takes priority over any in-flight mission item.
		d.mc.UpdateState(now, mission.CmdSuspend)
	}
	for _, c := range apCmds {
		if cmd, ok := c.ToDomain(); ok {
			d.ap.UpdateState(cmd)
		}
	}

	for _, c := range d.missionCmdInbox.Drain() {
		if cmd, ok := c.ToDomain(); ok {
			d.mc.UpdateState(now, cmd)
		}
	}
}

// Shutdown drains the bus and stops the telemetry feed.
func (d *daemon) Shutdown() {
	d.wsfeed.Close()
	d.bus.Close()
}
