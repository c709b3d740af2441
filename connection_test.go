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

package fishbowl_test

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	fishbowl "github.com/djinnsour/fishbowl-1"
	"github.com/djinnsour/fishbowl-1/envelope"
	"github.com/djinnsour/fishbowl-1/framing"
	"github.com/djinnsour/fishbowl-1/internal/test/mockserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newMockConnection(
	t *testing.T,
	conversation []mockserver.ConversationEntry,
	options ...fishbowl.ConnectionOptionFunc,
) (*fishbowl.Connection, *mockserver.Connection) {
	t.Helper()
	mockConn := mockserver.NewConnection(conversation)
	options = append(
		[]fishbowl.ConnectionOptionFunc{
			fishbowl.WithConnection(mockConn),
			fishbowl.WithLogger(discardLogger),
		},
		options...,
	)
	conn, err := fishbowl.NewConnection(options...)
	require.NoError(t, err)
	return conn, mockConn
}

func lastWriteElement(t *testing.T, mockConn *mockserver.Connection, path string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(mockConn.LastWrite()))
	el := doc.FindElement(path)
	require.NotNil(t, el, "no element at %s", path)
	return el
}

func TestLoginSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(t, mockserver.ConversationLogin())

	require.NoError(t, conn.Login("johndoe", "secret"))
	assert.True(t, conn.LoggedIn())
	assert.Equal(t, mockserver.MockTicket, conn.Ticket())

	assert.Empty(t, lastWriteElement(t, mockConn, "/FbiXml/Ticket").Text())
	login := "/FbiXml/FbiMsgsRq/LoginRq/"
	assert.Equal(t, "johndoe", lastWriteElement(t, mockConn, login+"UserName").Text())
	assert.Equal(
		t,
		fishbowl.EncodePassword("secret"),
		lastWriteElement(t, mockConn, login+"UserPassword").Text(),
	)
	assert.Equal(
		t,
		strconv.Itoa(fishbowl.DefaultAppId),
		lastWriteElement(t, mockConn, login+"IAID").Text(),
	)
	assert.Equal(
		t,
		fishbowl.DefaultAppName,
		lastWriteElement(t, mockConn, login+"IAName").Text(),
	)

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
	assert.False(t, conn.LoggedIn())
	assert.Empty(t, conn.Ticket())
}

func TestLoginOptions(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		mockserver.ConversationLogin(),
		fishbowl.WithAppInfo(fishbowl.AppInfo{Id: 42, Name: "inventory-sync", Description: "sync"}),
		fishbowl.WithPasswordEncoder(fishbowl.PlainPassword),
	)
	require.NoError(t, conn.Login("johndoe", "secret"))
	login := "/FbiXml/FbiMsgsRq/LoginRq/"
	assert.Equal(t, "42", lastWriteElement(t, mockConn, login+"IAID").Text())
	assert.Equal(t, "inventory-sync", lastWriteElement(t, mockConn, login+"IAName").Text())
	assert.Equal(t, "secret", lastWriteElement(t, mockConn, login+"UserPassword").Text())
	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLoginRejected(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		[]mockserver.ConversationEntry{
			mockserver.ConversationEntryLoginRequest,
			mockserver.ConversationEntryLoginRejected,
		},
	)

	err := conn.Login("johndoe", "wrong")
	var authErr *fishbowl.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, fishbowl.StatusInvalidCredentials, authErr.StatusCode)
	assert.Equal(t, "Invalid username or password.", authErr.StatusMessage)
	assert.False(t, conn.LoggedIn())
	assert.Empty(t, conn.Ticket())
	assert.True(t, conn.Connected())

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLoginMissingTicket(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		[]mockserver.ConversationEntry{
			mockserver.ConversationEntryLoginRequest,
			mockserver.ConversationEntryResponse(
				mockserver.ResponseXML("", fishbowl.StatusSuccess, "", "<LoginRs/>"),
			),
		},
	)

	err := conn.Login("johndoe", "secret")
	var protoErr *fishbowl.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.ErrorIs(t, err, fishbowl.ErrMissingTicket)
	assert.False(t, conn.LoggedIn())

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLoginTicketKey(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		[]mockserver.ConversationEntry{
			mockserver.ConversationEntryLoginRequest,
			mockserver.ConversationEntryResponse(
				[]byte(`<FbiXml><Ticket><Key>keyed-ticket</Key></Ticket>` +
					`<FbiMsgsRs statusCode="1000"><LoginRs/></FbiMsgsRs></FbiXml>`),
			),
		},
	)
	require.NoError(t, conn.Login("johndoe", "secret"))
	assert.Equal(t, "keyed-ticket", conn.Ticket())
	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLoginMissingCredentials(t *testing.T) {
	conn, err := fishbowl.NewConnection(fishbowl.WithLogger(discardLogger))
	require.NoError(t, err)
	for _, creds := range [][2]string{{"", "secret"}, {"johndoe", ""}} {
		err := conn.Login(creds[0], creds[1])
		var authErr *fishbowl.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.ErrorIs(t, err, fishbowl.ErrMissingCredentials)
		assert.Zero(t, authErr.StatusCode)
	}
	assert.False(t, conn.LoggedIn())
}

func TestReloginMalformedResponse(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		append(
			mockserver.ConversationLogin(),
			mockserver.ConversationEntryLoginRequest,
			mockserver.ConversationEntryResponse([]byte("this is not xml <")),
		),
	)
	require.NoError(t, conn.Login("johndoe", "secret"))
	require.True(t, conn.LoggedIn())

	err := conn.Login("johndoe", "secret")
	var protoErr *fishbowl.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.False(t, conn.LoggedIn())
	assert.Empty(t, conn.Ticket())
	assert.True(t, conn.Connected())

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLoginNotConnected(t *testing.T) {
	conn, err := fishbowl.NewConnection(fishbowl.WithLogger(discardLogger))
	require.NoError(t, err)
	err = conn.Login("johndoe", "secret")
	var connErr *fishbowl.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, fishbowl.ErrNotConnected)
}

func TestSendNotConnected(t *testing.T) {
	conn, err := fishbowl.NewConnection(fishbowl.WithLogger(discardLogger))
	require.NoError(t, err)
	_, err = conn.Send([]byte("<FbiXml/>"))
	var connErr *fishbowl.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, fishbowl.ErrNotConnected)
}

func TestSendNotLoggedIn(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(t, nil)
	_, err := conn.Send([]byte("<FbiXml/>"))
	assert.ErrorIs(t, err, fishbowl.ErrNotLoggedIn)
	assert.Nil(t, mockConn.LastWrite())
	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestSendRaw(t *testing.T) {
	defer goleak.VerifyNone(t)
	response := mockserver.ResponseXML(
		mockserver.MockTicket,
		fishbowl.StatusSuccess,
		"",
		"<SampleRs/>",
	)
	conn, mockConn := newMockConnection(
		t,
		append(
			mockserver.ConversationLogin(),
			mockserver.ConversationEntryRequest("SampleRq"),
			mockserver.ConversationEntryResponse(response),
		),
	)
	require.NoError(t, conn.Login("johndoe", "secret"))
	request, err := envelope.BuildBytes(conn.Ticket(), envelope.Tag("SampleRq"))
	require.NoError(t, err)
	data, err := conn.Send(request)
	require.NoError(t, err)
	assert.Equal(t, response, data)
	assert.Equal(t, request, mockConn.LastWrite())
	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLogout(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		append(
			mockserver.ConversationLogin(),
			mockserver.ConversationEntryLogoutRequest,
			mockserver.ConversationEntryLogoutResponse,
		),
	)
	require.NoError(t, conn.Login("johndoe", "secret"))
	require.NoError(t, conn.Logout())
	assert.Equal(
		t,
		mockserver.MockTicket,
		lastWriteElement(t, mockConn, "/FbiXml/Ticket").Text(),
	)
	assert.NotNil(t, lastWriteElement(t, mockConn, "/FbiXml/FbiMsgsRq/LogoutRq"))
	assert.False(t, conn.LoggedIn())
	assert.Empty(t, conn.Ticket())
	assert.True(t, conn.Connected())

	// A second logout has nothing to do
	require.NoError(t, conn.Logout())

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

// TestSendDuringLogout queues a request behind an in-flight logout. It must not reach the
// wire once the logout has ended the session
func TestSendDuringLogout(t *testing.T) {
	defer goleak.VerifyNone(t)
	release := make(chan struct{})
	conn, mockConn := newMockConnection(
		t,
		append(
			mockserver.ConversationLogin(),
			mockserver.ConversationEntryLogoutRequest,
			mockserver.ConversationEntryWait(release),
			mockserver.ConversationEntryLogoutResponse,
		),
	)
	require.NoError(t, conn.Login("johndoe", "secret"))
	obj := fishbowl.NewObject(conn, sampleSpec)

	logoutErr := make(chan error, 1)
	go func() {
		logoutErr <- conn.Logout()
	}()
	// Wait for the server to hold the logout request
	require.Eventually(
		t,
		func() bool {
			doc := etree.NewDocument()
			if err := doc.ReadFromBytes(mockConn.LastWrite()); err != nil {
				return false
			}
			return doc.FindElement("/FbiXml/FbiMsgsRq/LogoutRq") != nil
		},
		time.Second,
		time.Millisecond,
	)
	assert.True(t, conn.LoggedIn())

	sendErr := make(chan error, 1)
	go func() {
		_, err := obj.SendRequest("SampleRq", "SampleRs")
		sendErr <- err
	}()
	// Let the request queue up behind the logout round trip
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, <-logoutErr)
	assert.ErrorIs(t, <-sendErr, fishbowl.ErrNotLoggedIn)
	assert.Equal(t, fishbowl.StateBuilding, obj.State())
	assert.False(t, conn.LoggedIn())
	assert.NotNil(t, lastWriteElement(t, mockConn, "/FbiXml/FbiMsgsRq/LogoutRq"))

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestLogoutConnectionLost(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		append(
			mockserver.ConversationLogin(),
			mockserver.ConversationEntryLogoutRequest,
			mockserver.ConversationEntryClose,
		),
	)
	require.NoError(t, conn.Login("johndoe", "secret"))

	err := conn.Logout()
	var connErr *fishbowl.ConnectionError
	require.ErrorAs(t, err, &connErr)
	var closedErr *framing.ConnectionClosedError
	assert.ErrorAs(t, err, &closedErr)
	assert.False(t, conn.LoggedIn())
	assert.Empty(t, conn.Ticket())
	assert.False(t, conn.Connected())

	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(
		t,
		[]mockserver.ConversationEntry{mockserver.ConversationEntryLoginRequest},
		fishbowl.WithTimeout(50*time.Millisecond),
	)
	err := conn.Login("johndoe", "secret")
	var connErr *fishbowl.ConnectionError
	require.ErrorAs(t, err, &connErr)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
	assert.False(t, conn.Connected())
	require.NoError(t, <-mockConn.ErrorChan())
}

func TestOversizeResponse(t *testing.T) {
	defer goleak.VerifyNone(t)
	large := mockserver.ResponseXML(
		mockserver.MockTicket,
		fishbowl.StatusSuccess,
		"",
		"<LoginRs><Padding>"+strings.Repeat("x", 4096)+"</Padding></LoginRs>",
	)
	conn, mockConn := newMockConnection(
		t,
		[]mockserver.ConversationEntry{
			mockserver.ConversationEntryLoginRequest,
			mockserver.ConversationEntryResponse(large),
		},
		fishbowl.WithFrameConfig(framing.Config{MaxPayloadLength: 1024}),
	)
	err := conn.Login("johndoe", "secret")
	var protoErr *fishbowl.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.ErrorIs(t, err, framing.ErrPayloadTooLarge)
	assert.False(t, conn.Connected())
	// The mock fails writing the rest of the frame once the client hangs up
	assert.Error(t, <-mockConn.ErrorChan())
}

func TestDialAlreadyConnected(t *testing.T) {
	defer goleak.VerifyNone(t)
	conn, mockConn := newMockConnection(t, nil)
	err := conn.Dial("tcp", "127.0.0.1:1")
	var connErr *fishbowl.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.ErrorIs(t, err, fishbowl.ErrAlreadyConnected)
	assert.True(t, conn.Connected())
	require.NoError(t, <-mockConn.ErrorChan())
	require.NoError(t, conn.Close())
}

func TestConnectMissingHost(t *testing.T) {
	conn, err := fishbowl.NewConnection(fishbowl.WithLogger(discardLogger))
	require.NoError(t, err)
	assert.ErrorIs(t, conn.Connect("", 0), fishbowl.ErrMissingHost)
}

func TestDialFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	conn, err := fishbowl.NewConnection(
		fishbowl.WithLogger(discardLogger),
		fishbowl.WithDialTimeout(time.Second),
	)
	require.NoError(t, err)
	err = conn.Dial("tcp", addr)
	var connErr *fishbowl.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "dial", connErr.Op)
	assert.Equal(t, addr, connErr.Addr)
	assert.False(t, conn.Connected())
}

// TestConnectTCP logs in against a minimal server on a real socket
func TestConnectTCP(t *testing.T) {
	defer goleak.VerifyNone(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serveLogin(listener)
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)

	conn, err := fishbowl.NewConnection(fishbowl.WithLogger(discardLogger))
	require.NoError(t, err)
	require.NoError(t, conn.Connect(host, uint(port)))
	assert.Equal(t, listener.Addr().String(), conn.RemoteAddr())
	require.NoError(t, conn.Login("johndoe", "secret"))
	assert.Equal(t, mockserver.MockTicket, conn.Ticket())
	require.NoError(t, conn.Close())
	require.NoError(t, <-serverErr)
}

func serveLogin(listener net.Listener) error {
	c, err := listener.Accept()
	if err != nil {
		return err
	}
	defer c.Close()
	transport, err := framing.NewTransport(c, framing.DefaultConfig())
	if err != nil {
		return err
	}
	payload, err := transport.ReadFrame()
	if err != nil {
		return err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return err
	}
	if doc.FindElement("/FbiXml/FbiMsgsRq/LoginRq") == nil {
		return errors.New("expected a login request")
	}
	if err := transport.WriteFrame(mockserver.ConversationEntryLoginResponse.OutputMessage); err != nil {
		return err
	}
	// Wait for the client to hang up
	_, err = transport.ReadFrame()
	var closedErr *framing.ConnectionClosedError
	if errors.As(err, &closedErr) {
		return nil
	}
	return err
}

func TestNewConnectionInvalidFrameConfig(t *testing.T) {
	_, err := fishbowl.NewConnection(
		fishbowl.WithFrameConfig(framing.Config{LengthBytes: 3}),
	)
	assert.ErrorIs(t, err, framing.ErrInvalidConfig)
}

func TestSuccessCode(t *testing.T) {
	conn, err := fishbowl.New(fishbowl.WithSuccessCode(0))
	require.NoError(t, err)
	assert.Equal(t, 0, conn.SuccessCode())
	assert.True(t, conn.IsSuccess(0))
	assert.False(t, conn.IsSuccess(fishbowl.StatusSuccess))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Success!", fishbowl.StatusText(fishbowl.StatusSuccess))
	assert.Equal(
		t,
		"Invalid username or password.",
		fishbowl.StatusText(fishbowl.StatusInvalidCredentials),
	)
	assert.Equal(t, "Unknown status code", fishbowl.StatusText(4242))
	codes := fishbowl.StatusCodes()
	assert.Equal(t, fishbowl.StatusSuccess, codes[0])
	assert.IsIncreasing(t, codes)
}

func TestEncodePassword(t *testing.T) {
	// base64(md5("secret"))
	assert.Equal(t, "Xr4ilOzQ4PCOq3aQ0qbuaQ==", fishbowl.EncodePassword("secret"))
}
