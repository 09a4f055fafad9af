package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/electromanage/internal/store"
)

// DemoComponents is the starter inventory loaded by Seed.
var DemoComponents = []NewComponent{
	{Name: "Arduino Uno R3", Category: "Microcontrollers", Stock: 12, Cost: decimal.RequireFromString("22.90"), Description: "ATmega328P microcontroller board"},
	{Name: "Raspberry Pi 4 Model B", Category: "Microcontrollers", Stock: 8, Cost: decimal.RequireFromString("35.00"), Description: "4GB RAM version"},
	{Name: "DHT22 Temperature Sensor", Category: "Sensors", Stock: 24, Cost: decimal.RequireFromString("9.50"), Description: "Digital temperature and humidity sensor"},
	{Name: "HC-SR04 Ultrasonic Sensor", Category: "Sensors", Stock: 15, Cost: decimal.RequireFromString("3.50"), Description: "Ultrasonic distance measurement sensor"},
	{Name: "SG90 Servo Motor", Category: "Actuators", Stock: 20, Cost: decimal.RequireFromString("4.25"), Description: "Micro servo motor"},
	{Name: "12V Power Supply", Category: "Power", Stock: 10, Cost: decimal.RequireFromString("15.99"), Description: "12V 2A DC power supply"},
	{Name: "Jumper Wires Pack", Category: "Wires & Cables", Stock: 30, Cost: decimal.RequireFromString("6.99"), Description: "40-piece jumper wire set"},
	{Name: "Breadboard", Category: "Tools & Equipment", Stock: 18, Cost: decimal.RequireFromString("8.50"), Description: "400-point solderless breadboard"},
}

// Seed loads DemoComponents when the inventory is empty.
// Returns the number of components added. Either every demo component is
// stored or none is.
func (s *Service) Seed(ctx context.Context) (int, error) {
	return s.seed(ctx, DemoComponents)
}

func (s *Service) seed(ctx context.Context, demo []NewComponent) (int, error) {
	added := 0
	err := store.Atomically(ctx, s.ex, func(ex store.Executor) error {
		n, err := ex.Count(ctx, Table.Collection())
		if err != nil {
			return fmt.Errorf("count components: %w", err)
		}
		if n > 0 {
			s.logger.Debug("seed skipped: inventory not empty", "components", n)
			return nil
		}

		tx := s.With(ex)
		for _, in := range demo {
			if _, err := tx.AddComponent(ctx, in); err != nil {
				return fmt.Errorf("seed %q: %w", in.Name, err)
			}
		}
		added = len(demo)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if added > 0 {
		s.logger.Info("demo inventory loaded", "components", added)
	}
	return added, nil
}
