package eventrouter

// subscribeModule is the Subscribe path shared by every backend: the
// module bit is set without synchronization (only the owning task may
// call this), then the task bit is set atomically since other tasks may be
// reading or writing their own rows concurrently via Send's Mark step.
func subscribeModule(reg *registry, logger Logger, observer Observer, mod ModuleHandle, callerTask TaskHandle, typ EventType) (Subscription, error) {
	modRec, ok := reg.module(mod)
	if !ok {
		return Subscription{}, ErrModuleUnknown
	}
	assertf(logger, modRec.task == callerTask, ErrTaskUnknown,
		"eventrouter: Subscribe for module %d called from task %d, not its owning task %d", mod, callerTask, modRec.task)

	typeIdx, ok := reg.typeIndex(typ)
	if !ok {
		return Subscription{}, ErrEventTypeInvalid
	}

	reg.subs.subscribe(mod, modRec.task, typeIdx)

	sub := Subscription{ID: newDiagnosticID(), Module: mod, Type: typ}
	notify(observer, logger, EventTypeModuleSubscribed, map[string]any{
		"module":         modRec.name,
		"type":           int(typ),
		"subscriptionID": sub.ID.String(),
	})
	return sub, nil
}

// unsubscribeModule is the Unsubscribe path shared by every backend. It
// takes effect instantly, even for events already queued: CallHandlers
// consults the module bit at delivery time, not at enqueue time.
func unsubscribeModule(reg *registry, logger Logger, observer Observer, callerTask TaskHandle, sub Subscription) error {
	modRec, ok := reg.module(sub.Module)
	if !ok {
		return ErrModuleUnknown
	}
	assertf(logger, modRec.task == callerTask, ErrTaskUnknown,
		"eventrouter: Unsubscribe for module %d called from task %d, not its owning task %d", sub.Module, callerTask, modRec.task)

	typeIdx, ok := reg.typeIndex(sub.Type)
	if !ok {
		return ErrEventTypeInvalid
	}

	taskRec, ok := reg.task(modRec.task)
	assertf(logger, ok, ErrTaskUnknown, "eventrouter: module %d belongs to unknown task %d", sub.Module, modRec.task)

	reg.subs.unsubscribe(sub.Module, modRec.task, typeIdx, taskRec.modules)

	notify(observer, logger, EventTypeModuleUnsubscribe, map[string]any{
		"module":         modRec.name,
		"type":           int(sub.Type),
		"subscriptionID": sub.ID.String(),
	})
	return nil
}
