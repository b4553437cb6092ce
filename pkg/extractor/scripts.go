package extractor

// SnifferScript attaches a resource-timing observer once per document. Media
// looking entry names are appended to window.__intercepted_urls.
const SnifferScript = `(function() {
	if (window.__sniffer_active) { return false; }
	window.__intercepted_urls = [];
	const isMedia = (name) => name.includes('.mp4') ||
		(name.includes('.jpg') && (name.includes('instagram') || name.includes('fbcdn')));
	const observer = new PerformanceObserver((list) => {
		list.getEntries().forEach((entry) => {
			if (isMedia(entry.name)) { window.__intercepted_urls.push(entry.name); }
		});
	});
	observer.observe({ entryTypes: ['resource'] });
	window.__sniffer_active = true;
	return true;
})()`

// ClearScript empties the observer buffer and the browser's timing buffer.
const ClearScript = `(function() {
	window.__intercepted_urls = [];
	performance.clearResourceTimings();
	return true;
})()`

// PauseScript freezes the current frame: pauses a playing video and presses
// the viewer's pause control when one is shown.
const PauseScript = `(function() {
	let paused = false;
	const v = document.querySelector('video');
	if (v && !v.paused && v.readyState > 2) { v.pause(); paused = true; }
	const icon = document.querySelector('svg[aria-label="Pause"]');
	if (icon) {
		const btn = icon.closest('div[role="button"]') || icon.parentElement;
		if (btn) { btn.click(); paused = true; }
	}
	return paused;
})()`

// IdentifyScript reads the raw signals for the displayed frame. The network
// buffer is returned in arrival order; ranking happens in Go.
const IdentifyScript = `(function() {
	const out = { network: (window.__intercepted_urls || []).slice(), video: '', images: [] };
	const v = document.querySelector('video');
	if (v && v.currentSrc) { out.video = v.currentSrc; }
	document.querySelectorAll('img').forEach((img) => {
		out.images.push({ src: img.src || '', srcset: img.srcset || '', width: img.naturalWidth || 0 });
	});
	return out;
})()`
