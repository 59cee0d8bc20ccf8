package pagecapture

import (
	"encoding/json"
	"fmt"
)

// Envelope error codes produced by page scripts.
const (
	CodeEvalFailure     = "EVAL_FAILURE"
	CodeElementNotFound = "ELEMENT_NOT_FOUND"
	CodePickCancelled   = "PICK_CANCELLED"
	CodeClipboardDenied = "CLIPBOARD_DENIED"
)

// Envelope is the JSON string every page script resolves to.
type Envelope struct {
	OK           bool            `json:"ok"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// ScriptError is a failure reported by the page script itself.
type ScriptError struct {
	Code    string
	Message string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DecodeEnvelope parses a script result and unmarshals its data into out.
// A nil out discards the data.
func DecodeEnvelope(raw string, out any) error {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return fmt.Errorf("pagecapture: invalid envelope: %w", err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == "" {
			code = CodeEvalFailure
		}
		return &ScriptError{Code: code, Message: env.ErrorMessage}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("pagecapture: invalid envelope data: %w", err)
	}
	return nil
}

// DecodeCapture is DecodeEnvelope followed by capture validation.
func DecodeCapture(raw string) (*Capture, error) {
	var data json.RawMessage
	if err := DecodeEnvelope(raw, &data); err != nil {
		return nil, err
	}
	return Decode(data)
}

// jsCaptureHelpers walks a subtree and measures one baseline per normalized
// tag. Measurement nodes are removed in a finally block.
const jsCaptureHelpers = `
function _dsTag(tag) {
  tag = String(tag).toLowerCase();
  return tag.indexOf("-") >= 0 ? "div" : tag;
}
function _dsStyle(cs) {
  var out = [];
  for (var i = 0; i < cs.length; i++) {
    var p = cs[i];
    out.push([p, cs.getPropertyValue(p)]);
  }
  return out;
}
function _dsRaw(node, tags) {
  if (node.nodeType === Node.TEXT_NODE) return {type:"text", text:node.data};
  if (node.nodeType === Node.COMMENT_NODE) return {type:"comment"};
  if (node.nodeType !== Node.ELEMENT_NODE) return {type:"other"};
  tags[_dsTag(node.tagName)] = true;
  var attrs = [];
  var list = node.attributes || [];
  for (var i = 0; i < list.length; i++) attrs.push([list[i].name, list[i].value]);
  var kids = [];
  for (var j = 0; j < node.childNodes.length; j++) kids.push(_dsRaw(node.childNodes[j], tags));
  return {type:"element", tag:node.tagName, attrs:attrs, style:_dsStyle(window.getComputedStyle(node)), children:kids};
}
function _dsBaselines(tags) {
  var out = {};
  var names = Object.keys(tags);
  for (var i = 0; i < names.length; i++) {
    var probe = document.createElement(names[i]);
    document.body.appendChild(probe);
    try {
      out[names[i]] = _dsStyle(window.getComputedStyle(probe));
    } finally {
      if (probe.parentNode) probe.parentNode.removeChild(probe);
    }
  }
  return out;
}
function _dsCapture(el, selector) {
  var tags = {};
  var root = _dsRaw(el, tags);
  return {url:location.href, title:document.title, selector:selector || "", root:root, baselines:_dsBaselines(tags)};
}
`

// pickerGlobal holds {active, off} while the overlay is installed.
const pickerGlobal = "__domsnapPicker"

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func buildIIFE(async bool, body string) string {
	prefix := "(function(){\n"
	if async {
		prefix = "(async function(){\n"
	}
	return prefix + `try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

// CaptureSelector captures the first element matching a CSS selector.
func CaptureSelector(selector string) string {
	return buildIIFE(false, jsCaptureHelpers+`
var sel = `+jsString(selector)+`;
var el = document.querySelector(sel);
if (!el) return JSON.stringify({ok:false,error_code:"`+CodeElementNotFound+`",error_message:"no element matches "+sel});
return JSON.stringify({ok:true,data:_dsCapture(el, sel)});`)
}

// PickerOptions tunes the overlay colours.
type PickerOptions struct {
	Color string `json:"color"`
}

// PickerInstall installs the element picker overlay and resolves with a
// capture when the user clicks, or with PICK_CANCELLED on Escape, on
// PickerOff, or when the picker was already active (toggle off).
func PickerInstall(opts PickerOptions) string {
	if opts.Color == "" {
		opts.Color = "#4c9ffe"
	}
	return buildIIFE(true, jsCaptureHelpers+`
var cancelled = JSON.stringify({ok:false,error_code:"`+CodePickCancelled+`",error_message:"picker cancelled"});
var current = window.`+pickerGlobal+`;
if (current && current.active) { current.off(); return cancelled; }
var color = `+jsString(opts.Color)+`;
return await new Promise(function(resolve) {
  var box = document.createElement("div");
  Object.assign(box.style, {
    position:"fixed", top:"0px", left:"0px", width:"0px", height:"0px",
    pointerEvents:"none", zIndex:"2147483647",
    boxShadow:"0 0 0 2px " + color + ", 0 0 12px 2px rgba(76,159,254,.35) inset",
    background:"rgba(76,159,254,.12)", borderRadius:"4px", transition:"all 60ms ease"
  });
  var dot = document.createElement("div");
  Object.assign(dot.style, {
    position:"fixed", width:"8px", height:"8px", marginLeft:"-4px", marginTop:"-4px",
    pointerEvents:"none", borderRadius:"50%", background:color,
    boxShadow:"0 0 0 2px white, 0 0 10px rgba(0,0,0,.2)", zIndex:"2147483647"
  });
  var settled = false;
  function finish(result) {
    window.removeEventListener("mousemove", onMove, true);
    window.removeEventListener("click", onClick, true);
    window.removeEventListener("keydown", onKey, true);
    box.remove();
    dot.remove();
    window.`+pickerGlobal+` = {active:false, off:function(){}};
    if (!settled) { settled = true; resolve(result); }
  }
  function off() { finish(cancelled); }
  function updateBox(el) {
    if (!el || el === box || el === dot) return;
    var r = el.getBoundingClientRect();
    if (r.width <= 0 || r.height <= 0) return;
    box.style.top = Math.max(0, r.top) + "px";
    box.style.left = Math.max(0, r.left) + "px";
    box.style.width = r.width + "px";
    box.style.height = r.height + "px";
  }
  function onMove(e) {
    dot.style.transform = "translate(" + e.clientX + "px, " + e.clientY + "px)";
    updateBox(document.elementFromPoint(e.clientX, e.clientY));
  }
  function onClick(e) {
    e.preventDefault();
    e.stopPropagation();
    e.stopImmediatePropagation();
    var el = document.elementFromPoint(e.clientX, e.clientY);
    if (!el) { off(); return; }
    var result;
    try {
      result = JSON.stringify({ok:true,data:_dsCapture(el, "")});
    } catch (err) {
      result = JSON.stringify({ok:false,error_code:"`+CodeEvalFailure+`",error_message:String(err && err.message || err)});
    }
    finish(result);
  }
  function onKey(e) {
    if (e.key === "Escape") {
      e.preventDefault();
      e.stopPropagation();
      off();
    }
  }
  document.documentElement.appendChild(box);
  document.documentElement.appendChild(dot);
  window.addEventListener("mousemove", onMove, true);
  window.addEventListener("click", onClick, true);
  window.addEventListener("keydown", onKey, true);
  window.`+pickerGlobal+` = {active:true, off:off};
});`)
}

// PickerOff removes an installed overlay. It reports whether one was active.
func PickerOff() string {
	return buildIIFE(false, `
var current = window.`+pickerGlobal+`;
var was = !!(current && current.active);
if (was) current.off();
return JSON.stringify({ok:true,data:{was_active:was}});`)
}

// PickerStatus reports whether the overlay is installed.
func PickerStatus() string {
	return buildIIFE(false, `
var current = window.`+pickerGlobal+`;
return JSON.stringify({ok:true,data:{active:!!(current && current.active)}});`)
}

// ClipboardWrite writes text to the page clipboard.
func ClipboardWrite(text string) string {
	return buildIIFE(true, `
if (!navigator.clipboard || typeof navigator.clipboard.writeText !== "function") {
  return JSON.stringify({ok:false,error_code:"`+CodeClipboardDenied+`",error_message:"clipboard API unavailable"});
}
try {
  await navigator.clipboard.writeText(`+jsString(text)+`);
} catch (err) {
  return JSON.stringify({ok:false,error_code:"`+CodeClipboardDenied+`",error_message:String(err && err.message || err)});
}
return JSON.stringify({ok:true});`)
}
