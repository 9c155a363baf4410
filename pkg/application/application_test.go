package application

import (
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

type stubController struct{ key string }

func (c stubController) Register(*mux.Router) {}
func (c stubController) Key() string          { return c.key }

func TestApplication_Services(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterServices(&greeter{name: "catalog"})

	svc := app.Service(greeter{}).(*greeter)
	require.Equal(t, "catalog", svc.name)
	require.Panics(t, func() { app.Service(stubController{}) })
}

func TestApplication_ControllersSortedByKey(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterControllers(stubController{"/api/employees"}, stubController{"/api/audit-logs"}, stubController{"/api/data-configs"})

	keys := []string{}
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"/api/audit-logs", "/api/data-configs", "/api/employees"}, keys)
}
