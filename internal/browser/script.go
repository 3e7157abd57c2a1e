package browser

// bindingName is the CDP runtime binding the injected script posts
// signal JSON through.
const bindingName = "__dompulse_emit"

// observeScript installs the in-page signal sources: input listeners on
// every input-capable element, a MutationObserver on the document root,
// a document-level click listener and a window-level scroll listener.
// It only forwards raw signals; sensitivity filtering, redaction and
// debouncing all happen on the Go side. Password and hidden inputs are
// additionally skipped here so their values never even cross the CDP
// wire. Idempotent per page via the window guard flag.
const observeScript = `(() => {
  if (window.__dompulseObserving) { return; }
  window.__dompulseObserving = true;

  const emit = (msg) => {
    if (typeof window.__dompulse_emit === 'function') {
      window.__dompulse_emit(JSON.stringify(msg));
    }
  };

  const attr = (el, name) => (el && el.getAttribute && el.getAttribute(name)) || '';

  const targetInfo = (el) => el && el.tagName ? {
    hasTarget: true,
    tag: el.tagName.toLowerCase(),
    type: attr(el, 'type'),
    name: attr(el, 'name'),
    autocomplete: attr(el, 'autocomplete')
  } : { hasTarget: false };

  document.querySelectorAll('input, textarea').forEach((el) => {
    const type = attr(el, 'type').toLowerCase();
    if (type === 'password' || type === 'hidden') { return; }
    el.addEventListener('input', (e) => {
      emit(Object.assign({ kind: 'keystroke', text: e.target.value || '' }, targetInfo(e.target)));
    });
  });

  const mo = new MutationObserver((mutations) => {
    for (const m of mutations) {
      if (m.type !== 'characterData') { continue; }
      const parent = m.target.parentElement;
      emit(Object.assign({ kind: 'mutation', text: m.target.textContent || '' }, targetInfo(parent)));
    }
  });
  mo.observe(document.documentElement, { characterData: true, childList: true, subtree: true });
  window.__dompulseMutationObserver = mo;

  document.addEventListener('click', (e) => {
    emit(Object.assign({ kind: 'click', x: e.clientX, y: e.clientY }, targetInfo(e.target)));
  });

  window.addEventListener('scroll', () => {
    const doc = document.documentElement;
    emit({
      kind: 'scroll',
      hasTarget: false,
      scrollTop: window.scrollY || doc.scrollTop || 0,
      maxScrollTop: (doc.scrollHeight || 0) - (window.innerHeight || 0)
    });
  });
})();`

// teardownScript disconnects the in-page MutationObserver and clears the
// guard flag so a later Observe can reinstall cleanly.
const teardownScript = `(() => {
  if (window.__dompulseMutationObserver) {
    window.__dompulseMutationObserver.disconnect();
    delete window.__dompulseMutationObserver;
  }
  delete window.__dompulseObserving;
})();`
