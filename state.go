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

// RequestState is a step in the life of a single request made through an Object
type RequestState struct {
	Id   uint
	Name string
}

func NewRequestState(id uint, name string) RequestState {
	return RequestState{
		Id:   id,
		Name: name,
	}
}

func (s RequestState) String() string {
	return s.Name
}

// Done reports whether the request reached a final state
func (s RequestState) Done() bool {
	return s == StateSuccess || s == StateFailed
}

// A request moves Idle -> Building -> Sent -> Parsed and ends in Success or Failed.
// Transport and parse errors leave the object in the state it had reached
var (
	StateIdle     = NewRequestState(0, "Idle")
	StateBuilding = NewRequestState(1, "Building")
	StateSent     = NewRequestState(2, "Sent")
	StateParsed   = NewRequestState(3, "Parsed")
	StateSuccess  = NewRequestState(4, "Success")
	StateFailed   = NewRequestState(5, "Failed")
)
