// Package heartrate implements the display side of the ANT+ heart rate
// monitor profile.
//
// A heart rate monitor transmits one 8-byte data page per message. Byte 0
// holds the page number in bits 0-6; bit 7 is a toggle the codec ignores.
// Bytes 4-7 are the same on every page: the time of the last heart beat
// event in 1/1024 s, a rolling beat count, and the computed heart rate in
// beats per minute. Bytes 1-3 depend on the page.
//
// Decode turns a received page into one of the MonitorTxDataPage types.
// The HR feature command page travels only from display to monitor and is
// rejected on receive. Pages 112-127 decode as ManufacturerSpecific.
//
// Display drives one channel. Register its Mailbox with the router, open
// it, and call Process once per router cycle:
//
//	mb := channel.NewMailbox(0)
//	if err := r.AddChannel(mb); err != nil {
//	    return err
//	}
//	d := heartrate.NewDisplay(nil, 0, heartrate.PeriodFourHz, mb)
//	d.SetRxDataPageCallback(func(page heartrate.MonitorTxDataPage, err error) {
//	    if err != nil {
//	        log.Println(err)
//	        return
//	    }
//	    log.Println(page.Common().ComputedHeartRate)
//	})
//	if err := d.Open(); err != nil {
//	    return err
//	}
package heartrate
