package integration

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentUpdatesSameUser checks that per-user counters are not lost
// when queries for one user race.
func TestConcurrentUpdatesSameUser(t *testing.T) {
	user := uniqueUser()
	const workers = 20

	var wg sync.WaitGroup
	errs := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			expr := "2^2"
			if i%2 == 0 {
				expr = "1-1-1"
			}
			if r := execute(t, expr, user); r.Status != http.StatusOK {
				errs <- expr
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		assert.Fail(t, "evaluation failed", e)
	}

	resp, err := http.Get(apiURL("/users"))
	require.NoError(t, err)
	r := decode(t, resp)
	users, _ := r.Body["users"].([]interface{})
	for _, u := range users {
		m := u.(map[string]interface{})
		if formatID(m["userId"]) != user {
			continue
		}
		counter := m["operatorCounter"].(map[string]interface{})
		assert.Equal(t, 20.0, counter["-"], counter)
		assert.Equal(t, 10.0, counter["^"], counter)
		assert.Equal(t, "-", m["mostUsedOperator"])
		return
	}
	require.Failf(t, "user not listed", "user %s", user)
}
