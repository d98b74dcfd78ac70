package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectorConfig(t *testing.T) {
	conf := NewConfig()
	require.Equal(t, "dcmotor", conf.Ref.Type)

	conf.RegistryURL = "amqp://broker/"
	_, err := conf.NewConnector()
	require.Error(t, err)

	conf.RegistryURL = "mqtt://broker:1883/robo/"
	connector, err := conf.NewConnector()
	require.NoError(t, err)
	require.NotNil(t, connector)

	conf.Ref.ID = ""
	_, err = conf.Connect(context.Background())
	require.Error(t, err)
}
