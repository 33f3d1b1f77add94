package services_test

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

func TestMetrics(t *testing.T) {
	m := services.NewMetrics()

	var wg sync.WaitGroup
	for n := 0; n < 10; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncTurn(models.IntentGreeting)
			m.IncTurn(models.IntentSymptom)
			m.IncEmergency()
			m.IncGeneratorFailure()
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	gt.V(t, s.Turns).Equal(int64(20))
	gt.V(t, s.Emergencies).Equal(int64(10))
	gt.V(t, s.GeneratorFailures).Equal(int64(10))
	gt.V(t, s.TurnsByIntent[models.IntentSymptom]).Equal(int64(10))

	// snapshots are detached from the live counters
	s.TurnsByIntent[models.IntentSymptom] = 0
	gt.V(t, m.Snapshot().TurnsByIntent[models.IntentSymptom]).Equal(int64(10))
}

func TestStartMetricsReporter(t *testing.T) {
	_, err := services.StartMetricsReporter("not a schedule", services.NewMetrics(), slog.Default())
	gt.Error(t, err)

	c, err := services.StartMetricsReporter("@every 1h", services.NewMetrics(), slog.Default())
	gt.NoError(t, err).Required()
	gt.A(t, c.Entries()).Length(1)
	c.Stop()
}
