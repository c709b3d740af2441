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

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	fishbowl "github.com/djinnsour/fishbowl-1"
	"github.com/djinnsour/fishbowl-1/attribute"
	"github.com/djinnsour/fishbowl-1/envelope"
)

func newLoginCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in, print the session ticket and log out again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := c.createClientConnection()
			if err != nil {
				return err
			}
			defer c.closeConnection(conn)
			pterm.Success.Printfln("Logged in to %s", conn.RemoteAddr())
			pterm.Info.Printfln("Ticket: %s", conn.Ticket())
			return nil
		},
	}
}

type requestFlags struct {
	bodyFile string
	attrs    []string
}

func newRequestCommand(c *cli) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request REQUEST_TAG RESPONSE_TAG",
		Short: "Send one request and print the response",
		Long: `Send one request and print the response status.

The request is an empty REQUEST_TAG element unless --body names a file holding the
request element. With --attr TAG=Field the named children of the response are printed
as a table, otherwise the response element is printed as XML.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRequest(f, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&f.bodyFile, "body", "", "file holding the request element")
	cmd.Flags().StringArrayVar(&f.attrs, "attr", nil, "response attribute to print as TAG=Field")
	return cmd
}

func (c *cli) runRequest(f *requestFlags, requestTag string, responseTag string) error {
	spec, err := parseAttrFlags(f.attrs)
	if err != nil {
		return err
	}
	payload, err := requestPayload(requestTag, f.bodyFile)
	if err != nil {
		return err
	}
	conn, err := c.createClientConnection()
	if err != nil {
		return err
	}
	defer c.closeConnection(conn)

	obj := fishbowl.NewObject(conn, spec)
	resp, err := obj.Send(payload, responseTag)
	if err != nil {
		return err
	}
	statusData := pterm.TableData{
		{"Request", requestTag},
		{"State", obj.State().String()},
		{"Status code", strconv.Itoa(resp.StatusCode)},
		{"Status message", statusMessage(resp)},
	}
	if err := pterm.DefaultTable.WithHasHeader(false).WithData(statusData).Render(); err != nil {
		return err
	}
	if !resp.HasBody() {
		return nil
	}
	if spec.Len() == 0 {
		xml, err := envelope.ElementString(resp.Body)
		if err != nil {
			return err
		}
		pterm.Println(xml)
		return nil
	}
	obj.ParseAttributes(resp.Body)
	tableData := pterm.TableData{{"Field", "Value"}}
	for _, field := range spec.Fields() {
		value, ok := obj.Get(field)
		if !ok {
			value = "-"
		}
		tableData = append(tableData, []string{field, value})
	}
	return pterm.DefaultTable.WithHasHeader(true).WithData(tableData).Render()
}

func statusMessage(resp *envelope.Response) string {
	if resp.StatusMessage != "" {
		return resp.StatusMessage
	}
	return fishbowl.StatusText(resp.StatusCode)
}

// parseAttrFlags builds an attribute spec from TAG=Field arguments. A bare TAG uses the
// tag as the field name
func parseAttrFlags(attrs []string) (attribute.Spec, error) {
	ret := make([]attribute.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		tag, field, found := strings.Cut(attr, "=")
		if !found {
			field = tag
		}
		ret = append(ret, attribute.Field(strings.TrimSpace(tag), strings.TrimSpace(field)))
	}
	return attribute.NewSpec(ret...)
}

// requestPayload returns an empty request element, or the root element of bodyFile
func requestPayload(requestTag string, bodyFile string) (envelope.Payload, error) {
	if bodyFile == "" {
		return envelope.Tag(requestTag), nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(bodyFile); err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("request body %s has no element", bodyFile)
	}
	if root.Tag != requestTag {
		return nil, fmt.Errorf(
			"request body element is %s, expected %s",
			root.Tag,
			requestTag,
		)
	}
	return envelope.Fragment(root), nil
}

func newStatusCodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status-codes",
		Short: "List the known server status codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tableData := pterm.TableData{{"Code", "Description"}}
			for _, code := range fishbowl.StatusCodes() {
				tableData = append(
					tableData,
					[]string{strconv.Itoa(code), fishbowl.StatusText(code)},
				)
			}
			return pterm.DefaultTable.WithHasHeader(true).WithData(tableData).Render()
		},
	}
}
