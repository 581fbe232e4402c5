// Command feedgen is a synthetic order generator, a thin Go port of the
// original implementation's smem_feed_handler
// (_examples/original_source/src/bin/smem_feed_handler.rs): it drifts a
// per-instrument mid price with a normal distribution around a buy/sell
// offset and emits a random 50/50 mix of limit and cancel orders onto an ingress
// transport. It supplements spec.md's scope (§9) as a load-generation tool,
// not part of the validator itself.
package main

import (
	"math/rand"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ironbook/internal/common"
	"ironbook/internal/transport"
	"ironbook/internal/wire"
)

type config struct {
	transportKind string
	natsURL       string
	subject       string
	exchange      string
	interval      time.Duration
}

func main() {
	cfg := &config{}
	root := &cobra.Command{
		Use:   "feedgen",
		Short: "Generate a synthetic order stream for the validator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}
	root.Flags().StringVar(&cfg.transportKind, "transport", "pubsub", "egress transport: pubsub or shm")
	root.Flags().StringVar(&cfg.natsURL, "nats-url", nats.DefaultURL, "NATS broker URL (pubsub transport)")
	root.Flags().StringVar(&cfg.subject, "subject", "market_data", "NATS subject to publish synthetic orders on")
	root.Flags().StringVar(&cfg.exchange, "exchange", "NYSE", "exchange code for the shm slot path")
	root.Flags().DurationVar(&cfg.interval, "interval", 2*time.Second, "delay between generated orders")

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("feedgen exited with error")
	}
}

func run(cfg *config) error {
	sink, closeFn, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	sims := map[string]*instrumentSim{
		"TSLA": newInstrumentSim(300.0, 0.2),
		"AAPL": newInstrumentSim(180.0, 0.15),
	}
	instruments := []string{"TSLA", "AAPL"}

	var nextCancelID uint64
	for {
		instrument := instruments[rand.Intn(len(instruments))]
		sim := sims[instrument]
		isBuy := rand.Intn(2) == 0

		var o common.OrderEvent
		now := uint64(time.Now().UnixNano())
		if rand.Float64() < 0.5 {
			price := sim.nextOrderPrice(isBuy)
			qty := int32(1 + rand.Intn(99))
			side := common.Sell
			if isBuy {
				side = common.Buy
			}
			o = common.OrderEvent{
				ID:         now,
				Instrument: instrument,
				Price:      common.PriceFromFloat(price),
				Quantity:   qty,
				Side:       side,
				Kind:       common.Limit,
				OriginTS:   now,
			}
		} else {
			side := common.Sell
			if isBuy {
				side = common.Buy
			}
			o = common.OrderEvent{
				ID:         nextCancelID,
				Instrument: instrument,
				Side:       side,
				Kind:       common.Cancel,
				OriginTS:   now,
			}
		}
		nextCancelID++

		if err := sink.Send(wire.EncodeOrder(o)); err != nil {
			log.Error().Err(err).Msg("failed to send synthetic order")
		} else {
			log.Info().Str("instrument", instrument).Str("kind", o.Kind.String()).
				Str("side", o.Side.String()).Uint64("id", o.ID).
				Float64("price", o.Price.Float()).Int32("quantity", o.Quantity).
				Msg("synthetic order sent")
		}

		time.Sleep(cfg.interval)
	}
}

func buildSink(cfg *config) (transport.Sink, func(), error) {
	if cfg.transportKind == "shm" {
		path := transport.SlotPath(time.Now(), cfg.exchange)
		slot, err := transport.OpenSlot(path, true)
		if err != nil {
			return nil, nil, err
		}
		return slot, func() { slot.Close() }, nil
	}
	conn, err := nats.Connect(cfg.natsURL)
	if err != nil {
		return nil, nil, err
	}
	return transport.NewPubSubSink(conn, cfg.subject), func() { conn.Close() }, nil
}

// instrumentSim drifts a mid price with each generated limit order, mirroring
// InstrumentSimulator::next_order_price in the original Rust generator.
type instrumentSim struct {
	midPrice   float64
	volatility float64
}

func newInstrumentSim(midPrice, volatility float64) *instrumentSim {
	return &instrumentSim{midPrice: midPrice, volatility: volatility}
}

// nextOrderPrice drifts the mid price and samples a price offset to one
// side of it, rounded to the nearest ten cents, matching the original's
// rounding convention.
func (s *instrumentSim) nextOrderPrice(isBuy bool) float64 {
	drift := (rand.Float64()*2 - 1) * s.volatility
	s.midPrice += drift

	mean := s.midPrice + 0.5
	if isBuy {
		mean = s.midPrice - 0.5
	}
	price := mean + rand.NormFloat64()
	if price < 1.0 {
		price = 1.0
	}
	return roundToTenCents(price)
}

func roundToTenCents(p float64) float64 {
	return float64(int(p*10+0.5)) / 10
}
