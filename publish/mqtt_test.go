package publish

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straincap/report"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes. Methods the publisher never calls are left
// to the embedded nil interface.
type fakeClient struct {
	mqtt.Client
	published    []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, message{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return &doneToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestLineObserverPublishesRawLines(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "bench/rig1", time.Second)

	obs := p.LineObserver()
	obs("[M_SESSION_START]")
	obs("0.10,100,512,510,509,3,1.25")

	require.Len(t, client.published, 2)
	assert.Equal(t, "bench/rig1/lines", client.published[0].topic)
	assert.Equal(t, "0.10,100,512,510,509,3,1.25", string(client.published[1].payload))
	assert.Zero(t, client.published[1].qos)
}

func TestPublishSummary(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "", time.Second)

	require.NoError(t, p.PublishSummary(report.Summary{Label: "unloaded", Samples: 3}))
	require.Len(t, client.published, 1)
	msg := client.published[0]
	assert.Equal(t, "straincap/summary", msg.topic)
	assert.True(t, msg.retained)
	assert.Equal(t, byte(1), msg.qos)

	var got report.Summary
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "unloaded", got.Label)
	assert.Equal(t, 3, got.Samples)
}

func TestPublishSummaryError(t *testing.T) {
	boom := errors.New("not authorized")
	p := NewPublisher(&fakeClient{err: boom}, "x", time.Second)
	assert.ErrorIs(t, p.PublishSummary(report.Summary{}), boom)
}

func TestWriteCopiesPayload(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "x", time.Second)
	buf := []byte("abc")
	_, err := p.Write(buf)
	require.NoError(t, err)
	buf[0] = 'z'
	assert.Equal(t, "abc", string(client.published[0].payload))

	p.Close()
	assert.True(t, client.disconnected)
}
