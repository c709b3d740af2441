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
	"slices"

	"github.com/djinnsour/fishbowl-1/envelope"
)

// Status codes reported by the Fishbowl server
const (
	StatusSuccess                  = envelope.DefaultSuccessCode
	StatusUnknownMessage           = 1001
	StatusConnectionLost           = 1002
	StatusSomeRequestsFailed       = 1003
	StatusDatabaseError            = 1004
	StatusServerShutdown           = 1009
	StatusLoggedOffByAdmin         = 1010
	StatusNotFound                 = 1011
	StatusGeneralError             = 1012
	StatusDependenciesExist        = 1013
	StatusNetworkUnavailable       = 1014
	StatusIncompatibleDatabase     = 1016
	StatusUnknownLoginError        = 1100
	StatusAppKeyInUse              = 1109
	StatusAppPendingApproval       = 1110
	StatusAppKeyMismatch           = 1111
	StatusAppNotApproved           = 1112
	StatusInvalidCredentials       = 1120
	StatusInvalidTicket            = 1130
	StatusInvalidKey               = 1131
	StatusInvalidInitializeToken   = 1140
	StatusInvalidRequest           = 1141
	StatusInvalidRequestParameters = 1150
)

var statusText = map[int]string{
	StatusSuccess:                  "Success!",
	StatusUnknownMessage:           "Unknown message received.",
	StatusConnectionLost:           "Connection to Fishbowl server was lost.",
	StatusSomeRequestsFailed:       "Some requests had errors.",
	StatusDatabaseError:            "There was an error with the database.",
	StatusServerShutdown:           "Fishbowl server has been shut down.",
	StatusLoggedOffByAdmin:         "You have been logged off the server by an administrator.",
	StatusNotFound:                 "Not found.",
	StatusGeneralError:             "General error.",
	StatusDependenciesExist:        "Dependencies need to be deleted.",
	StatusNetworkUnavailable:       "Unable to establish network connection.",
	StatusIncompatibleDatabase:     "Incompatible database version.",
	StatusUnknownLoginError:        "Unknown login error occurred.",
	StatusAppKeyInUse:              "This integrated application registration key is already in use.",
	StatusAppPendingApproval:       "A new integrated application has been added and is waiting for administrator approval.",
	StatusAppKeyMismatch:           "This integrated application registration key does not match.",
	StatusAppNotApproved:           "This integrated application has not been approved by the administrator.",
	StatusInvalidCredentials:       "Invalid username or password.",
	StatusInvalidTicket:            "Invalid ticket passed to Fishbowl server.",
	StatusInvalidKey:               "Invalid key value.",
	StatusInvalidInitializeToken:   "Initialization token is not correct type.",
	StatusInvalidRequest:           "Request was invalid.",
	StatusInvalidRequestParameters: "Request parameters were invalid.",
}

// StatusText returns a description of a Fishbowl status code
func StatusText(code int) string {
	if text, ok := statusText[code]; ok {
		return text
	}
	return "Unknown status code"
}

// StatusCodes returns the known status codes in ascending order
func StatusCodes() []int {
	ret := make([]int, 0, len(statusText))
	for code := range statusText {
		ret = append(ret, code)
	}
	slices.Sort(ret)
	return ret
}
