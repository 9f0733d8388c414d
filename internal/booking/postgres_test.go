package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makerspace/internal/apperr"
	"makerspace/internal/clock"
	"makerspace/internal/db"
	"makerspace/internal/equipment"
	"makerspace/internal/testutil"
)

type openPolicy struct{}

func (openPolicy) CheckWindow(ctx context.Context, trustLevel int, start, end time.Time) error {
	return nil
}

func TestConcurrentBookingsOfOneSlot(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()

	const members = 8
	for i := 1; i <= members; i++ {
		testutil.InsertUser(t, database, fmt.Sprintf("member %d", i), fmt.Sprintf("member%d@example.com", i), 3)
	}
	equipmentID := testutil.InsertEquipment(t, database, "Laser cutter", 2000)

	grid := equipment.Grid{Duration: 30 * time.Minute, Location: time.UTC}
	svc := NewService(
		NewRepository(database),
		equipment.NewRepository(database),
		openPolicy{},
		db.NewTxManager(database, 10*time.Second),
		grid,
		clock.NewFixed(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)),
	)

	start := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		booked    int
		conflicts int
		other     []error
	)
	for i := 1; i <= members; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := svc.BookEquipment(ctx, Requester{UserID: userID, TrustLevel: 3}, BookRequest{
				EquipmentID: equipmentID,
				StartTime:   start,
				EndTime:     start.Add(30 * time.Minute),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, booked)
	assert.Equal(t, members-1, conflicts)

	var active int
	require.NoError(t, database.GetContext(ctx, &active,
		`SELECT COUNT(*) FROM equipment_bookings WHERE status <> 'cancelled'`))
	assert.Equal(t, 1, active)
}
