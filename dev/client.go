package dev

// ClientScript is the bootstrap script injected into every page in dev
// mode. It opens an EventSource against HotReplacePath, passing the
// current page's path as the href query parameter so the server can
// resolve and re-render this tab's own route rather than some other
// connected tab's. Every record arrives as the default "message" event
// carrying one JSON payload; the two payload shapes are told apart by
// their keys alone, since the wire record itself carries only
// "id"/"data"/"retry" fields, no "event" field. A payload with only
// "body" is an error banner; a payload that also carries "assets" is a
// successful reload. Incoming messages are debounced, body scroll and
// any element marked data-preserve-scroll are captured before the body
// swap, and reactive-component state keyed by data-hrc is restored in a
// staggered pass after the new scripts have had a chance to hydrate.
const ClientScript = `(function () {
	var es = new EventSource("` + HotReplacePath + `?href=" + encodeURIComponent(location.pathname));
	var pending = null;
	var first = true;

	es.onmessage = function (ev) {
		if (first) {
			// The initial payload mirrors what the server already
			// rendered for this page load; applying it would only
			// reset scroll and component state for nothing.
			first = false;
			return;
		}
		if (pending) {
			clearTimeout(pending);
		}
		pending = setTimeout(function () {
			pending = null;
			apply(JSON.parse(ev.data));
		}, 250);
	};

	function apply(payload) {
		if (!payload.assets) {
			showErrorOverlay(payload.body);
			return;
		}

		hideErrorOverlay();

		var scrollX = window.scrollX, scrollY = window.scrollY;
		var scrolls = {};
		document.querySelectorAll("[data-preserve-scroll]").forEach(function (el) {
			scrolls[el.getAttribute("data-preserve-scroll")] = {
				top: el.scrollTop, left: el.scrollLeft
			};
		});
		var states = {};
		document.querySelectorAll("[data-hrc]").forEach(function (el) {
			if (el.__state !== undefined) {
				states[el.getAttribute("data-hrc")] = el.__state;
			}
		});

		document.body.innerHTML = payload.body;

		(payload.assets.css || []).forEach(function (href) {
			var link = document.createElement("link");
			link.rel = "stylesheet";
			link.href = payload.publicPath + href;
			document.head.appendChild(link);
		});

		(payload.assets.js || []).forEach(function (src) {
			var script = document.createElement("script");
			script.type = "module";
			script.src = payload.publicPath + src;
			document.body.appendChild(script);
		});

		window.scrollTo(scrollX, scrollY);
		Object.keys(scrolls).forEach(function (key) {
			var el = document.querySelector('[data-preserve-scroll="' + key + '"]');
			if (el) {
				el.scrollTop = scrolls[key].top;
				el.scrollLeft = scrolls[key].left;
			}
		});

		// Give freshly appended module scripts a moment to hydrate
		// before handing each component its old state back; retry a
		// few times for components that mount late.
		var attempts = 0;
		(function restore() {
			var remaining = false;
			Object.keys(states).forEach(function (key) {
				var el = document.querySelector('[data-hrc="' + key + '"]');
				if (el && typeof el.__restoreState === "function") {
					el.__restoreState(states[key]);
					delete states[key];
				} else if (el) {
					remaining = true;
				}
			});
			if (remaining && attempts++ < 5) {
				setTimeout(restore, 50 * attempts);
			}
		})();
	}

	function showErrorOverlay(body) {
		var overlay = document.getElementById("__ember_dev_overlay__");
		if (!overlay) {
			overlay = document.createElement("div");
			overlay.id = "__ember_dev_overlay__";
			overlay.style.position = "fixed";
			overlay.style.inset = "0";
			overlay.style.zIndex = "999999";
			document.body.appendChild(overlay);
		}
		overlay.innerHTML = body;
	}

	function hideErrorOverlay() {
		var overlay = document.getElementById("__ember_dev_overlay__");
		if (overlay) {
			overlay.remove();
		}
	}
})();
`
