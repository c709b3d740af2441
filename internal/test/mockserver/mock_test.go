// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mockserver

import (
	"testing"
	"time"

	"github.com/djinnsour/fishbowl-1/envelope"
	"github.com/djinnsour/fishbowl-1/framing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// Basic test of conversation mock functionality
func TestBasic(t *testing.T) {
	defer goleak.VerifyNone(t)
	mockConn := NewConnection(ConversationLogin())
	client, err := framing.NewTransport(mockConn, framing.DefaultConfig())
	require.NoError(t, err)

	request, err := envelope.BuildBytes("", envelope.Tag("LoginRq"))
	require.NoError(t, err)
	require.NoError(t, client.WriteFrame(request))
	payload, err := client.ReadFrame()
	require.NoError(t, err)

	resp, err := envelope.Parse(payload, "LoginRs")
	require.NoError(t, err)
	assert.Equal(t, MockTicket, resp.Ticket)
	assert.Equal(t, MockSuccessCode, resp.StatusCode)
	assert.True(t, resp.HasBody())
	assert.Equal(t, request, mockConn.LastWrite())

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, client.Close())
}

func TestUnexpectedRequest(t *testing.T) {
	defer goleak.VerifyNone(t)
	mockConn := NewConnection(ConversationLogin())
	client, err := framing.NewTransport(mockConn, framing.DefaultConfig())
	require.NoError(t, err)

	request, err := envelope.BuildBytes("", envelope.Tag("LogoutRq"))
	require.NoError(t, err)
	require.NoError(t, client.WriteFrame(request))

	err = <-mockConn.ErrorChan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected LoginRq, got LogoutRq")
	_, err = client.ReadFrame()
	assert.Error(t, err)
}

func TestWait(t *testing.T) {
	defer goleak.VerifyNone(t)
	release := make(chan struct{})
	mockConn := NewConnection([]ConversationEntry{
		ConversationEntryWait(release),
		ConversationEntryLoginResponse,
	})
	client, err := framing.NewTransport(mockConn, framing.DefaultConfig())
	require.NoError(t, err)

	payloadChan := make(chan []byte, 1)
	go func() {
		payload, _ := client.ReadFrame()
		payloadChan <- payload
	}()
	select {
	case <-payloadChan:
		t.Fatal("response sent before release")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	assert.Equal(t, ConversationEntryLoginResponse.OutputMessage, <-payloadChan)

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, client.Close())
}

func TestUnknownEntryType(t *testing.T) {
	defer goleak.VerifyNone(t)
	mockConn := NewConnection([]ConversationEntry{{}})
	err := <-mockConn.ErrorChan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown conversation entry type")
}

func TestResponseXML(t *testing.T) {
	data := ResponseXML("abc", 1162, "Part not found", `<SampleRs statusCode="1162"/><OtherRs/>`)
	resp, err := envelope.Parse(data, "SampleRs")
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Ticket)
	assert.Equal(t, 1162, resp.StatusCode)
	assert.True(t, resp.HasBody())

	assert.Panics(t, func() {
		ResponseXML("", MockSuccessCode, "", "<Broken>")
	})
}
