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

package fishbowl

import (
	"crypto/md5" // #nosec G501 -- required by the login request format
	"encoding/base64"
	"strconv"

	"github.com/beevik/etree"
	"github.com/djinnsour/fishbowl-1/envelope"
)

// Default integrated application identity
const (
	DefaultAppId          = 7000
	DefaultAppName        = "fishbowl-go"
	DefaultAppDescription = "Go client for the Fishbowl inventory API"
)

// AppInfo identifies the integrated application to the server. An administrator
// must approve the application the first time it logs in
type AppInfo struct {
	Id          uint
	Name        string
	Description string
}

func DefaultAppInfo() AppInfo {
	return AppInfo{
		Id:          DefaultAppId,
		Name:        DefaultAppName,
		Description: DefaultAppDescription,
	}
}

// PasswordEncoder converts a plain password into the form sent in the login request
type PasswordEncoder func(password string) string

// EncodePassword returns the base64 encoding of the MD5 digest of the password
func EncodePassword(password string) string {
	// #nosec G401
	sum := md5.Sum([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// PlainPassword sends the password unchanged
func PlainPassword(password string) string {
	return password
}

func (c *Connection) loginPayload(username string, password string) envelope.Payload {
	info := c.appInfo
	encode := c.passwordEncoder
	return envelope.PayloadFunc(func() (*etree.Element, error) {
		el := etree.NewElement(LoginRequestTag)
		el.CreateElement("IAID").SetText(strconv.FormatUint(uint64(info.Id), 10))
		el.CreateElement("IAName").SetText(info.Name)
		el.CreateElement("IADescription").SetText(info.Description)
		el.CreateElement("UserName").SetText(username)
		el.CreateElement("UserPassword").SetText(encode(password))
		return el, nil
	})
}
