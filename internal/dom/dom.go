// Package dom defines the wire vocabulary between a rendered page and the
// runtime: events the page forwards and commands the runtime sends back.
// Element targets are DOM ids shared with the server templates.
package dom

// Op is a DOM command understood by the page shim.
type Op string

const (
	OpSetValue        Op = "set_value"
	OpSetText         Op = "set_text"
	OpSetAttr         Op = "set_attr"
	OpSetStyle        Op = "set_style"
	OpAddClass        Op = "add_class"
	OpRemoveClass     Op = "remove_class"
	OpSetDisabled     Op = "set_disabled"
	OpRemove          Op = "remove"
	OpAppendHTML      Op = "append_html"
	OpSubmit          Op = "submit"
	OpNavigate        Op = "navigate"
	OpModalShow       Op = "modal_show"
	OpModalHide       Op = "modal_hide"
	OpDialogShowModal Op = "dialog_show_modal"
	OpDialogClose     Op = "dialog_close"
)

// Command is one DOM mutation. Target is an element id; Selector, when set,
// addresses every matching element instead.
type Command struct {
	Op       Op     `json:"op"`
	Target   string `json:"target,omitempty"`
	Selector string `json:"selector,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    string `json:"value,omitempty"`
	Flag     bool   `json:"flag,omitempty"`
	HTML     string `json:"html,omitempty"`
}

// Sink delivers commands to one page, in order.
type Sink interface {
	Send(cmds ...Command) error
}

// Event types forwarded by the page shim.
const (
	EventHello  = "hello"
	EventAction = "action"
	EventInput  = "input"
	EventBlur   = "blur"
	EventFocus  = "focus"
	EventSubmit = "submit"
	EventClick  = "click"
	EventDialog = "dialog"
	EventPing   = "ping"
)

// Event is a page interaction. Confirm carries the data-veris-confirm
// attribute of the element and is nil when the attribute is absent.
type Event struct {
	Type    string            `json:"type"`
	Name    string            `json:"name,omitempty"`
	Target  string            `json:"target,omitempty"`
	Value   string            `json:"value,omitempty"`
	Href    string            `json:"href,omitempty"`
	Confirm *string           `json:"confirm,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Args    map[string]string `json:"args,omitempty"`
}

func SetValue(id, value string) Command { return Command{Op: OpSetValue, Target: id, Value: value} }

func SetText(id, text string) Command { return Command{Op: OpSetText, Target: id, Value: text} }

func SetAttr(id, name, value string) Command {
	return Command{Op: OpSetAttr, Target: id, Name: name, Value: value}
}

func SetStyle(id, property, value string) Command {
	return Command{Op: OpSetStyle, Target: id, Name: property, Value: value}
}

func AddClass(id, class string) Command { return Command{Op: OpAddClass, Target: id, Value: class} }

// RemoveClassAll removes class from every element matching selector.
func RemoveClassAll(selector, class string) Command {
	return Command{Op: OpRemoveClass, Selector: selector, Value: class}
}

func SetDisabled(id string, disabled bool) Command {
	return Command{Op: OpSetDisabled, Target: id, Flag: disabled}
}

func Remove(id string) Command { return Command{Op: OpRemove, Target: id} }

// AppendHTML appends markup to the document body.
func AppendHTML(markup string) Command { return Command{Op: OpAppendHTML, HTML: markup} }

func Submit(formID string) Command { return Command{Op: OpSubmit, Target: formID} }

func Navigate(href string) Command { return Command{Op: OpNavigate, Value: href} }

func ModalShow(id string) Command { return Command{Op: OpModalShow, Target: id} }

func ModalHide(id string) Command { return Command{Op: OpModalHide, Target: id} }

func DialogShowModal(id string) Command { return Command{Op: OpDialogShowModal, Target: id} }

// DialogClose closes a native dialog with the given return value.
func DialogClose(id, returnValue string) Command {
	return Command{Op: OpDialogClose, Target: id, Value: returnValue}
}
