package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(422, 20*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Calculation(true)
	c.Calculation(false)
	c.RunStarted()
	c.RunFinished(3, 1, time.Second, nil)
	c.RunStarted()
	c.RunFinished(0, 0, time.Millisecond, errors.New("cancelled"))

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["clientErrorsTotal"])
	assert.Equal(t, float64(20), snap["avgDurationMs"])
	assert.Equal(t, uint64(2), snap["calculationsTotal"])
	assert.Equal(t, uint64(1), snap["minimumWageBreaches"])
	assert.Equal(t, uint64(2), snap["payrollRunsStarted"])
	assert.Equal(t, uint64(1), snap["payrollRunsCompleted"])
	assert.Equal(t, uint64(1), snap["payrollRunsFailed"])
	assert.Equal(t, uint64(3), snap["payslipsIssued"])
	assert.Equal(t, uint64(1), snap["employeesFailed"])
}

func TestNilCollectorIgnoresRunEvents(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RunStarted()
		c.RunFinished(1, 0, time.Second, nil)
		c.Calculation(false)
	})
}
